// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/balureddy003/dyocense-sub002/pkg/logging"
	"github.com/balureddy003/dyocense-sub002/services/compiler/knowledge"
	"github.com/balureddy003/dyocense-sub002/services/compiler/ledger"
	"github.com/balureddy003/dyocense-sub002/services/compiler/observability"
	"github.com/balureddy003/dyocense-sub002/services/compiler/pipeline"
	"github.com/balureddy003/dyocense-sub002/services/compiler/playbook"
	"github.com/balureddy003/dyocense-sub002/services/compiler/routes"
	"github.com/balureddy003/dyocense-sub002/services/compiler/scenario"
	"github.com/balureddy003/dyocense-sub002/services/compiler/services"
	"github.com/balureddy003/dyocense-sub002/services/llm"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "dyocense-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("goal-compiler-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// buildKnowledge picks the knowledge backend from the environment.
//
// Precedence: KNOWLEDGE_SERVICE_URL (remote HTTP service), then
// WEAVIATE_SERVICE_URL (vector store), then the in-memory TF-cosine store.
// The returned Store is nil in remote mode since this deployment owns no
// local documents.
func buildKnowledge(ctx context.Context) (*knowledge.Client, knowledge.Store) {
	if remoteURL := strings.Trim(os.Getenv("KNOWLEDGE_SERVICE_URL"), "\"' "); remoteURL != "" {
		client, err := knowledge.NewRemoteClient(remoteURL, 0)
		if err != nil {
			log.Fatalf("Failed to create remote knowledge client: %v", err)
		}
		slog.Info("Using remote knowledge backend", "url", remoteURL)
		return client, nil
	}

	weaviateURL := strings.Trim(os.Getenv("WEAVIATE_SERVICE_URL"), "\"' ")
	if weaviateURL != "" && strings.Contains(weaviateURL, "http") {
		parsedURL, err := url.Parse(weaviateURL)
		if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
			slog.Warn("WEAVIATE_SERVICE_URL is invalid, falling back to in-memory store",
				"url", weaviateURL, "error", err)
		} else {
			weaviateClient, err := weaviate.NewClient(weaviate.Config{
				Host:   parsedURL.Host,
				Scheme: parsedURL.Scheme,
			})
			if err != nil {
				slog.Error("Failed to create Weaviate client, falling back to in-memory store", "error", err)
			} else {
				store, err := knowledge.NewWeaviateStore(ctx, weaviateClient, buildEmbedder())
				if err != nil {
					slog.Error("Failed to initialize Weaviate store, falling back to in-memory store", "error", err)
				} else {
					client, _ := knowledge.NewLocalClient(store)
					slog.Info("Using Weaviate knowledge backend", "url", weaviateURL)
					return client, store
				}
			}
		}
	}

	slog.Info("No knowledge backend configured, using in-memory store")
	store := knowledge.NewMemoryStore()
	client, _ := knowledge.NewLocalClient(store)
	return client, store
}

// buildEmbedder selects the embedding backend for the vector store.
func buildEmbedder() knowledge.Embedder {
	if os.Getenv("EMBEDDING_BACKEND") == "openai" {
		embedder, err := knowledge.NewOpenAIEmbedder(
			os.Getenv("OPENAI_API_KEY"),
			os.Getenv("OPENAI_BASE_URL"),
			os.Getenv("EMBEDDING_MODEL_NAME"))
		if err == nil {
			slog.Info("Using OpenAI embedding backend")
			return embedder
		}
		slog.Warn("Failed to create OpenAI embedder, falling back to hashing embedder", "error", err)
	}
	return knowledge.NewHashingEmbedder(0)
}

// buildLedger hydrates the version ledger, with MongoDB persistence when
// MONGO_URI is set. Persistence is best-effort; a dead Mongo at startup
// means an empty, memory-only ledger, not a dead service.
func buildLedger(ctx context.Context) *ledger.Ledger {
	mongoURI := strings.Trim(os.Getenv("MONGO_URI"), "\"' ")
	if mongoURI == "" {
		slog.Info("MONGO_URI not set, ledger runs in-memory only")
		return ledger.New(ctx, nil)
	}

	database := os.Getenv("MONGO_DATABASE")
	if database == "" {
		database = "dyocense"
		slog.Warn("MONGO_DATABASE not set, defaulting to 'dyocense'")
	}
	collection := os.Getenv("MONGO_COLLECTION")
	if collection == "" {
		collection = "goal_versions"
		slog.Warn("MONGO_COLLECTION not set, defaulting to 'goal_versions'")
	}

	store, err := ledger.Connect(ctx, mongoURI, database, collection)
	if err != nil {
		slog.Error("Failed to connect to MongoDB, ledger runs in-memory only", "error", err)
		return ledger.New(ctx, nil)
	}
	slog.Info("Ledger persistence enabled", "database", database, "collection", collection)
	return ledger.New(ctx, store)
}

// buildRegistry loads the playbook catalogue, defaults plus the optional
// yaml catalogue at PLAYBOOK_CATALOGUE_PATH.
func buildRegistry() *playbook.Registry {
	cataloguePath := os.Getenv("PLAYBOOK_CATALOGUE_PATH")
	if cataloguePath == "" {
		registry, err := playbook.NewRegistry(playbook.Defaults())
		if err != nil {
			log.Fatalf("Failed to build default playbook registry: %v", err)
		}
		return registry
	}

	registry, err := playbook.LoadCatalogue(cataloguePath)
	if err != nil {
		log.Fatalf("Failed to load playbook catalogue from %s: %v", cataloguePath, err)
	}
	slog.Info("Loaded playbook catalogue", "path", cataloguePath)
	return registry
}

// buildCompiler configures the LLM backend. A missing or failed backend
// returns nil, which runs the service stub-only.
func buildCompiler() llm.Compiler {
	llmBackendType := os.Getenv("LLM_BACKEND_TYPE")

	switch llmBackendType {
	case "openai":
		compiler, err := llm.NewOpenAICompiler()
		if err != nil {
			slog.Error("Failed to initialize OpenAI compiler, running stub-only", "error", err)
			return nil
		}
		slog.Info("Using OpenAI compiler backend")
		return compiler
	case "", "none":
		slog.Warn("LLM_BACKEND_TYPE not set, running stub-only")
		return nil
	default:
		slog.Warn("Unknown LLM_BACKEND_TYPE, running stub-only", "type", llmBackendType)
		return nil
	}
}

func main() {
	port := os.Getenv("COMPILER_PORT")
	if port == "" {
		port = "12310"
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("LOG_LEVEL")),
		LogDir:  os.Getenv("LOG_DIR"),
		Service: "goal-compiler",
		JSON:    true,
	})
	defer logger.Close()
	logger.SetAsDefault()

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	metrics := observability.InitMetrics()

	ctx := context.Background()
	knowledgeClient, store := buildKnowledge(ctx)
	versions := buildLedger(ctx)
	registry := buildRegistry()
	compiler := buildCompiler()

	orchestrator, err := pipeline.NewOrchestrator(knowledgeClient, registry, compiler, pipeline.NewEventLog())
	if err != nil {
		log.Fatalf("Failed to build compile pipeline: %v", err)
	}
	compileService, err := services.NewCompileService(orchestrator, versions)
	if err != nil {
		log.Fatalf("Failed to build compile service: %v", err)
	}
	engine, err := scenario.NewEngine(versions, compileService)
	if err != nil {
		log.Fatalf("Failed to build scenario engine: %v", err)
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("goal-compiler-service"))

	routes.SetupRoutes(router, compileService, engine, store, metrics)

	log.Println("Starting the goal compiler server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
