package prefs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/vvatanabe/shipcode/internal/constant"
)

type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendFile     Backend = "file"
	BackendDynamoDB Backend = "dynamodb"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendMemory, BackendFile, BackendDynamoDB:
		return b, nil
	case "":
		return BackendFile, nil
	default:
		return "", fmt.Errorf("unknown preference backend %q", s)
	}
}

// Options selects and configures the preference backend.
type Options struct {
	Backend Backend
	// Path of the JSON document for BackendFile.
	Path string
	// Table, Region and Endpoint configure BackendDynamoDB. Endpoint is
	// optional and mostly used with DynamoDB Local.
	Table    string
	Region   string
	Endpoint string
	Logger   *slog.Logger
}

// Open returns the configured store. When the medium is unavailable it
// logs a warning and degrades to a MemoryStore, so it never fails.
func Open(ctx context.Context, opts Options) Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore()
	case BackendDynamoDB:
		s, err := openDynamo(ctx, opts, logger)
		if err != nil {
			logger.Warn("preferences kept in memory only", "backend", opts.Backend, "error", err)
			return NewMemoryStore()
		}
		return s
	default:
		path := opts.Path
		if path == "" {
			path = constant.DefaultPreferencesFile
		}
		s, err := NewFileStore(path, logger)
		if err != nil {
			logger.Warn("preferences kept in memory only", "backend", BackendFile, "error", err)
			return NewMemoryStore()
		}
		return s
	}
}

func openDynamo(ctx context.Context, opts Options, logger *slog.Logger) (*DynamoStore, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, StorageError{Op: "open", Cause: err}
	}
	db := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	table := opts.Table
	if table == "" {
		table = constant.DefaultPreferencesTable
	}
	s := NewDynamoStore(db, table, WithDynamoLogger(logger))
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
