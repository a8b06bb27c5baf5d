package database

import (
	"strings"
	"testing"

	"ecochain/config"
	"ecochain/store/memory"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.PostgresConfig{
		Host: "db", Port: "5432", Database: "eco", Username: "u", Password: "p", SSLMode: "disable",
	})
	want := "host=db port=5432 user=u password=p dbname=eco sslmode=disable"
	if dsn != want {
		t.Errorf("DSN() = %q, want %q", dsn, want)
	}
}

func TestMongoURI(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MongoConfig
		want string
	}{
		{"explicit url wins", config.MongoConfig{URI: "mongodb://x/y", Host: "h"}, "mongodb://x/y"},
		{"no auth", config.MongoConfig{Host: "h", Port: "1", Database: "d"}, "mongodb://h:1/d"},
		{"auth source", config.MongoConfig{Host: "h", Port: "1", Database: "d", Username: "u", Password: "p@ss", AuthSource: "admin"},
			"mongodb://u:p%40ss@h:1/d?authSource=admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MongoURI(tt.cfg); got != tt.want {
				t.Errorf("MongoURI() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenMemoryAndUnknownDriver(t *testing.T) {
	backend, err := Open(&config.Config{StoreDriver: config.DriverMemory})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := backend.(*memory.Store); !ok {
		t.Errorf("Open(memory) returned %T", backend)
	}

	_, err = Open(&config.Config{StoreDriver: "sqlite"})
	if err == nil || !strings.Contains(err.Error(), "sqlite") {
		t.Errorf("Open(sqlite) error = %v", err)
	}
}

func TestNullableColumnsRejectArbitrarySQL(t *testing.T) {
	if nullableColumns["status; DROP TABLE users"] {
		t.Fatal("precondition column whitelist is open")
	}
	if !nullableColumns["picker_rating"] || !nullableColumns["generator_rating"] {
		t.Error("rating columns must be usable in preconditions")
	}
}
