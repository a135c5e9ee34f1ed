package main

import (
	"log"

	_ "snapmaster-gcp/docs"
	"snapmaster-gcp/internal/app"
)

// @title SnapMaster GCP Provider API
// @version 1.0
// @description Runs GCP actions and manages Pub/Sub triggers on behalf of the SnapMaster engine.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
