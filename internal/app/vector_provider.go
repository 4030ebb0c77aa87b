package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"

	"github.com/yungbote/toktik-backend/internal/platform/logger"
	"github.com/yungbote/toktik-backend/internal/platform/pinecone"
	"github.com/yungbote/toktik-backend/internal/platform/qdrant"
	"github.com/yungbote/toktik-backend/internal/platform/vectorindex"
)

var (
	newPineconeClient      = pinecone.New
	newPineconeVectorStore = pinecone.NewVectorStore
	newQdrantVectorStore   = qdrant.NewVectorStore
)

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorInvalidProvider     VectorProviderBootstrapErrorCode = "invalid_provider"
	VectorProviderBootstrapErrorMissingAPIKey       VectorProviderBootstrapErrorCode = "missing_pinecone_api_key"
	VectorProviderBootstrapErrorMissingQdrantURL    VectorProviderBootstrapErrorCode = "missing_qdrant_url"
	VectorProviderBootstrapErrorInvalidQdrantURL    VectorProviderBootstrapErrorCode = "invalid_qdrant_url"
	VectorProviderBootstrapErrorMissingQdrantColl   VectorProviderBootstrapErrorCode = "missing_qdrant_collection"
	VectorProviderBootstrapErrorInvalidQdrantVector VectorProviderBootstrapErrorCode = "invalid_qdrant_vector_dim"
	VectorProviderBootstrapErrorQdrantConfigFailed  VectorProviderBootstrapErrorCode = "qdrant_config_failed"
	VectorProviderBootstrapErrorDimensionMismatch   VectorProviderBootstrapErrorCode = "dimension_mismatch"
	VectorProviderBootstrapErrorDistanceUnsupported VectorProviderBootstrapErrorCode = "unsupported_distance"
	VectorProviderBootstrapErrorConnectFailed       VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorProviderInitFailed  VectorProviderBootstrapErrorCode = "provider_init_failed"
)

type VectorProviderBootstrapError struct {
	Code              VectorProviderBootstrapErrorCode
	Provider          string
	ObjectStorageMode string
	Cause             error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector provider bootstrap failed"
	}
	return fmt.Sprintf(
		"vector provider bootstrap failed (code=%s provider=%q object_storage_mode=%q): %v",
		e.Code,
		e.Provider,
		e.ObjectStorageMode,
		e.Cause,
	)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveVectorIndex builds the configured Vector Index Client. Unlike the
// object inspector it is mandatory: a failure here aborts startup.
func resolveVectorIndex(ctx context.Context, log *logger.Logger, cfg Config) (vectorindex.Index, error) {
	mode := cfg.GCP.ObjectStorageMode
	provider := cfg.Vector.Provider
	source := cfg.Vector.ProviderSource
	if source == "" {
		source = providerSourceMode
	}

	var (
		idx vectorindex.Index
		err error
	)
	switch provider {
	case VectorProviderQdrant:
		log.Info(
			"Selecting vector store provider",
			"provider", provider,
			"object_storage_mode", mode,
			"provider_mode_source", source,
			"qdrant_url", cfg.Vector.QdrantURL,
			"qdrant_collection", cfg.Vector.QdrantCollection,
			"qdrant_namespace", cfg.Vector.QdrantNamespace,
			"vector_dim", cfg.Embedding.Dim,
		)
		idx, err = newQdrantVectorStore(ctx, log, qdrant.Config{
			URL:        cfg.Vector.QdrantURL,
			Collection: cfg.Vector.QdrantCollection,
			Namespace:  cfg.Vector.QdrantNamespace,
			VectorDim:  cfg.Embedding.Dim,
			Timeout:    cfg.Vector.Timeout,
		})

	case VectorProviderPinecone:
		log.Info(
			"Selecting vector store provider",
			"provider", provider,
			"object_storage_mode", mode,
			"provider_mode_source", source,
			"pinecone_index_name", cfg.Vector.PineconeIndexName,
			"pinecone_namespace", cfg.Vector.PineconeNamespace,
		)
		if cfg.Vector.PineconeAPIKey == "" {
			err = &VectorProviderBootstrapError{
				Code:              VectorProviderBootstrapErrorMissingAPIKey,
				Provider:          provider,
				ObjectStorageMode: mode,
				Cause:             errors.New("PINECONE_API_KEY not set"),
			}
			break
		}
		var pc pinecone.Client
		pc, err = newPineconeClient(log, pinecone.Config{
			APIKey:     cfg.Vector.PineconeAPIKey,
			APIVersion: cfg.Vector.PineconeAPIVersion,
			BaseURL:    cfg.Vector.PineconeBaseURL,
			Timeout:    cfg.Vector.Timeout,
		})
		if err != nil {
			break
		}
		idx, err = newPineconeVectorStore(ctx, log, pc, pinecone.IndexConfig{
			IndexName: cfg.Vector.PineconeIndexName,
			IndexHost: cfg.Vector.PineconeIndexHost,
			Namespace: cfg.Vector.PineconeNamespace,
		})

	default:
		err = &VectorProviderBootstrapError{
			Code:              VectorProviderBootstrapErrorInvalidProvider,
			Provider:          provider,
			ObjectStorageMode: mode,
			Cause:             fmt.Errorf("unsupported vector provider %q", provider),
		}
	}

	if err != nil {
		classified := classifyVectorProviderBootstrapError(provider, mode, err)
		log.Error(
			"Vector store provider bootstrap failed",
			"provider", provider,
			"object_storage_mode", mode,
			"provider_mode_source", source,
			"error_code", vectorProviderBootstrapErrorCode(classified),
			"error", classified,
		)
		return nil, classified
	}
	return instrumentIndex(log, provider, idx, breakerSettings{
		failures: cfg.Vector.BreakerFailures,
		timeout:  cfg.Vector.BreakerTimeout,
	}), nil
}

func classifyVectorProviderBootstrapError(provider, objectStorageMode string, err error) error {
	var already *VectorProviderBootstrapError
	if errors.As(err, &already) {
		return already
	}
	wrap := func(code VectorProviderBootstrapErrorCode) error {
		return &VectorProviderBootstrapError{
			Code:              code,
			Provider:          provider,
			ObjectStorageMode: objectStorageMode,
			Cause:             err,
		}
	}

	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingURL:
			return wrap(VectorProviderBootstrapErrorMissingQdrantURL)
		case qdrant.ConfigErrorInvalidURL:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantURL)
		case qdrant.ConfigErrorMissingCollection:
			return wrap(VectorProviderBootstrapErrorMissingQdrantColl)
		case qdrant.ConfigErrorInvalidVectorDim:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantVector)
		default:
			return wrap(VectorProviderBootstrapErrorQdrantConfigFailed)
		}
	}

	var opErr *qdrant.OperationError
	if errors.As(err, &opErr) {
		switch opErr.Code {
		case qdrant.OperationErrorValidation:
			return wrap(VectorProviderBootstrapErrorDimensionMismatch)
		case qdrant.OperationErrorUnsupportedDistance:
			return wrap(VectorProviderBootstrapErrorDistanceUnsupported)
		case qdrant.OperationErrorTransportFailed, qdrant.OperationErrorTimeout:
			return wrap(VectorProviderBootstrapErrorConnectFailed)
		}
	}

	var urlErr *neturl.Error
	if errors.As(err, &urlErr) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	return wrap(VectorProviderBootstrapErrorProviderInitFailed)
}

func vectorProviderBootstrapErrorCode(err error) VectorProviderBootstrapErrorCode {
	var bootstrapErr *VectorProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return VectorProviderBootstrapErrorProviderInitFailed
}
