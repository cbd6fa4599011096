package main

import (
	"flag"
	"log"
	"os"

	"github.com/df07/go-scene-synth/pkg/config"
	"github.com/df07/go-scene-synth/web/server"
)

func main() {
	cfg := config.LoadConfigFromEnv()

	// Parse command line flags
	port := flag.Int("port", cfg.Port, "Port to serve on")
	flag.Parse()
	cfg.Port = *port

	// Create and start web server
	webServer := server.NewServer(cfg)

	log.Printf("Scene Pipeline Web Server")
	log.Printf("POST a pipeline request to http://localhost:%d/api/pipeline", cfg.Port)

	if err := webServer.Start(); err != nil {
		log.Printf("Error starting server: %v", err)
		os.Exit(1)
	}
}
