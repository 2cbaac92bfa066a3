// Package objectstorage provides storage and retrieval of small binary
// objects, mainly user uploaded images. Objects are stored in MongoDB and
// fronted by an LRU cache. Object IDs are content addressed, derived from the
// md5 hash of the data, so uploading the same file twice yields the same ID.
package objectstorage

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tappio/backend/db"
)

var (
	// ErrObjectNotFound is returned when the requested object is not found in storage.
	ErrObjectNotFound = fmt.Errorf("object not found")
	// ErrInvalidObjectID is returned when the provided object ID is invalid or empty.
	ErrInvalidObjectID = fmt.Errorf("invalid object ID")
	// ErrFileTypeNotSupported is returned when the file type is not in the supported types list.
	ErrFileTypeNotSupported = fmt.Errorf("file type not supported")
)

// ObjectFileType represents the MIME type of a stored object file.
type ObjectFileType string

const (
	// FileTypeJPEG represents the JPEG image MIME type.
	FileTypeJPEG ObjectFileType = "image/jpeg"
	// FileTypePNG represents the PNG image MIME type.
	FileTypePNG ObjectFileType = "image/png"
	// FileTypeJPG represents the JPG image MIME type.
	FileTypeJPG ObjectFileType = "image/jpg"
)

// DefaultSupportedFileTypes is a map of file types that are supported by default.
var DefaultSupportedFileTypes = map[ObjectFileType]bool{
	FileTypeJPEG: true,
	FileTypePNG:  true,
	FileTypeJPG:  true,
}

// Config holds the configuration for the object storage client.
type Config struct {
	DB             *db.MongoStorage
	SupportedTypes []ObjectFileType
	ServerURL      string
}

// Client provides functionality for storing and retrieving objects.
// It uses MongoDB for storage and includes an LRU cache for repeated reads.
type Client struct {
	db             *db.MongoStorage
	supportedTypes map[ObjectFileType]bool
	cache          *lru.Cache[string, db.Object]
	ServerURL      string
}

// New initializes a new object storage client with the provided configuration.
func New(conf *Config) (*Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("invalid object storage configuration")
	}
	supportedTypes := make(map[ObjectFileType]bool, len(DefaultSupportedFileTypes))
	for t := range DefaultSupportedFileTypes {
		supportedTypes[t] = true
	}
	for _, t := range conf.SupportedTypes {
		supportedTypes[t] = true
	}
	cache, err := lru.New[string, db.Object](256)
	if err != nil {
		return nil, fmt.Errorf("cannot create cache: %w", err)
	}
	return &Client{
		db:             conf.DB,
		supportedTypes: supportedTypes,
		cache:          cache,
		ServerURL:      conf.ServerURL,
	}, nil
}

// Get retrieves an object from storage by its ID. It first checks the cache,
// and if not found, retrieves it from the database.
func (osc *Client) Get(objectID string) (*db.Object, error) {
	if objectID == "" {
		return nil, ErrInvalidObjectID
	}

	if object, ok := osc.cache.Get(objectID); ok {
		return &object, nil
	}

	object, err := osc.db.Object(objectID)
	if err != nil {
		if err == db.ErrNotFound {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("error retrieving object: %w", err)
	}

	osc.cache.Add(objectID, *object)
	return object, nil
}

// Put stores an image associated to a user. It sniffs the content type of the
// data and rejects anything that is not a supported image type. The objectID
// is calculated from the data itself. It returns the object name, the ID
// suffixed with the file extension, which can be used to download the object.
func (osc *Client) Put(data io.Reader, size int64, userEmail string) (string, error) {
	buff := make([]byte, size)
	if _, err := io.ReadFull(data, buff); err != nil {
		return "", fmt.Errorf("cannot read file: %w", err)
	}
	// sniff the content type so we don't allow files other than images
	filetype := http.DetectContentType(buff)
	fileExtension := strings.Split(filetype, "/")[1]
	if !osc.supportedTypes[ObjectFileType(filetype)] {
		return "", ErrFileTypeNotSupported
	}

	objectID := calculateObjectID(buff)
	if err := osc.db.SetObject(objectID, userEmail, filetype, buff); err != nil {
		return "", fmt.Errorf("cannot set object: %w", err)
	}
	return fmt.Sprintf("%s.%s", objectID, fileExtension), nil
}

// calculateObjectID calculates the objectID from the given data. The objectID
// is the hex encoding of the first 12 bytes of the md5 hash of the data.
func calculateObjectID(data []byte) string {
	hash := md5.Sum(data)
	return hex.EncodeToString(hash[:12])
}
