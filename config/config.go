package config

import (
	"os"

	"github.com/joho/godotenv"
)

// SearchLimit is the default number of search hits returned when the caller
// does not ask for a specific limit.
const SearchLimit = 10

const defaultDataDir = "data"

func init() {
	// Load env from .env
	godotenv.Load()
}

// DataDir is the root of the durable store (collections, backups, settings).
func DataDir() string {
	dir := os.Getenv("DATA_DIR")
	if dir == "" {
		return defaultDataDir
	}
	return dir
}

func Port() string {
	port := os.Getenv("PORT")
	if port == "" {
		return "8080"
	}
	return port
}
