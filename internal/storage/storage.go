// Package storage provides the metadata store for Sentra using CouchDB.
// It wraps the eve.evalgo.org/db library with type-safe operations for
// cameras, recordings, ANPR events and users. CouchDB's per-document MVCC
// gives the linearizable per-row updates the supervisors rely on.
package storage

import (
	"fmt"
	"log"

	"eve.evalgo.org/db"

	"github.com/sentra-video/sentra/internal/config"
)

// JSON-LD document types stored in the database.
const (
	TypeCamera    = "sentra:Camera"
	TypeRecording = "sentra:Recording"
	TypeANPREvent = "sentra:ANPREvent"
	TypeUser      = "sentra:User"

	defaultContext = "https://schema.org"
)

// Storage provides the metadata store for Sentra.
type Storage struct {
	service *db.CouchDBService
	config  *config.Config
}

// debugLog logs a message only if debug mode is enabled in config
func (s *Storage) debugLog(format string, args ...interface{}) {
	if s.config.Server.Debug {
		log.Printf(format, args...)
	}
}

// New creates a new Storage instance from the application configuration.
// It initializes the CouchDB connection and ensures the database exists.
func New(cfg *config.Config) (*Storage, error) {
	couchConfig := db.CouchDBConfig{
		URL:             cfg.CouchDB.URL,
		Database:        cfg.CouchDB.Database,
		Username:        cfg.CouchDB.Username,
		Password:        cfg.CouchDB.Password,
		CreateIfMissing: true,
	}

	service, err := db.NewCouchDBServiceFromConfig(couchConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create CouchDB service: %w", err)
	}

	storage := &Storage{
		service: service,
		config:  cfg,
	}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return storage, nil
}

// initializeSchema creates indexes needed for Sentra queries.
func (s *Storage) initializeSchema() error {
	indexes := []db.Index{
		{
			Name:   "cameras-name",
			Fields: []string{"@type", "name"},
			Type:   "json",
		},
		{
			Name:   "recordings-camera-start",
			Fields: []string{"@type", "cameraId", "startTime"},
			Type:   "json",
		},
		{
			Name:   "anpr-camera-timestamp",
			Fields: []string{"@type", "cameraId", "timestamp"},
			Type:   "json",
		},
		{
			Name:   "users-email",
			Fields: []string{"@type", "email"},
			Type:   "json",
		},
	}

	for _, index := range indexes {
		if err := s.service.CreateIndex(index); err != nil {
			// Index might already exist
			s.debugLog("failed to create index %s: %v", index.Name, err)
		}
	}

	return nil
}

// Close closes the storage connection.
func (s *Storage) Close() error {
	return s.service.Close()
}

// IsNotFound reports whether err is a document-not-found error.
func IsNotFound(err error) bool {
	if couchErr, ok := err.(*db.CouchDBError); ok {
		return couchErr.IsNotFound()
	}
	return false
}

// IsConflict reports whether err is a document revision conflict.
func IsConflict(err error) bool {
	if couchErr, ok := err.(*db.CouchDBError); ok {
		return couchErr.IsConflict()
	}
	return false
}
