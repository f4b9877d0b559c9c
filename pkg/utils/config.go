package utils

import "os"

type Config struct {
	Addr           string
	OpenLibraryURL string
	CoversURL      string
	RedisAddr      string
	JWTSecret      string
	CORSOrigin     string
}

func LoadConfig() Config {
	return Config{
		Addr:           getenv("BOOKSHELF_ADDR", ":8080"),
		OpenLibraryURL: getenv("BOOKSHELF_OPENLIBRARY_URL", "https://openlibrary.org"),
		CoversURL:      getenv("BOOKSHELF_COVERS_URL", "https://covers.openlibrary.org"),
		RedisAddr:      os.Getenv("BOOKSHELF_REDIS_ADDR"),
		JWTSecret:      os.Getenv("BOOKSHELF_JWT_SECRET"),
		CORSOrigin:     getenv("BOOKSHELF_CORS_ORIGIN", "http://localhost:3000"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
