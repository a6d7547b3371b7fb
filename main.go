package main

import (
	"quill/cmd"

	"github.com/joho/godotenv"
	_ "golang.org/x/crypto/x509roots/fallback" // We need this to make TLS work in scratch containers
)

func main() {
	// A .env file is optional, real environment variables win
	_ = godotenv.Load()
	cmd.Execute()
}
