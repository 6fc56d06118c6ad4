package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/8adimka/Go_Weather_Assistant/internal/chat/model"
	"github.com/8adimka/Go_Weather_Assistant/internal/redisx"
)

const promptCollection = "prompt_configs"

// PromptManager resolves stage prompts from Redis, then MongoDB, then the
// built-in defaults. Either store may be nil.
type PromptManager struct {
	cache    *redisx.Cache
	mongoDB  *mongo.Database
	fallback map[string]string
}

// NewPromptManager creates a new prompt manager
func NewPromptManager(cache *redisx.Cache, db *mongo.Database) *PromptManager {
	fallback := make(map[string]string)
	for _, prompt := range model.GetDefaultPromptConfigs() {
		fallback[prompt.Name] = prompt.Content
	}

	return &PromptManager{
		cache:    cache,
		mongoDB:  db,
		fallback: fallback,
	}
}

// GetPrompt retrieves a prompt by name with caching and fallback
func (pm *PromptManager) GetPrompt(ctx context.Context, name string) (string, error) {
	if pm.cache != nil {
		var cached string
		err := pm.cache.Get(ctx, pm.cache.Key(name), &cached)
		if err == nil {
			slog.DebugContext(ctx, "Prompt retrieved from cache", "name", name)
			return cached, nil
		}
		if !errors.Is(err, redisx.ErrCacheMiss) {
			slog.WarnContext(ctx, "Cache error, proceeding without cache", "error", err, "name", name)
		}
	}

	if pm.mongoDB != nil {
		prompt, err := pm.getPromptFromMongo(ctx, name)
		if err == nil {
			if pm.cache != nil {
				if cacheErr := pm.cache.Set(ctx, pm.cache.Key(name), prompt); cacheErr != nil {
					slog.WarnContext(ctx, "Failed to cache prompt", "error", cacheErr, "name", name)
				}
			}
			return prompt, nil
		}
		slog.WarnContext(ctx, "Failed to get prompt from MongoDB, using fallback", "name", name, "error", err)
	}

	if prompt, ok := pm.fallback[name]; ok {
		return prompt, nil
	}
	return "", fmt.Errorf("prompt not found: %s (no fallback available)", name)
}

func (pm *PromptManager) getPromptFromMongo(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"name": name, "is_active": true}
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	var promptConfig model.PromptConfig
	err := pm.mongoDB.Collection(promptCollection).FindOne(ctx, filter, opts).Decode(&promptConfig)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", fmt.Errorf("no active prompt found for name: %s", name)
		}
		return "", fmt.Errorf("failed to query MongoDB for prompt: %w", err)
	}
	if promptConfig.Content == "" {
		return "", fmt.Errorf("prompt content is empty for name: %s", name)
	}

	slog.DebugContext(ctx, "Prompt retrieved from MongoDB", "name", name, "version", promptConfig.Version)
	return promptConfig.Content, nil
}

// InitializePrompts inserts the default prompts that MongoDB does not have yet.
func (pm *PromptManager) InitializePrompts(ctx context.Context) error {
	if pm.mongoDB == nil {
		return nil
	}
	collection := pm.mongoDB.Collection(promptCollection)

	for _, prompt := range model.GetDefaultPromptConfigs() {
		filter := bson.M{"name": prompt.Name, "version": prompt.Version}

		var existing model.PromptConfig
		err := collection.FindOne(ctx, filter).Decode(&existing)
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			if _, err := collection.InsertOne(ctx, prompt); err != nil {
				return fmt.Errorf("failed to insert prompt %s: %w", prompt.Name, err)
			}
			slog.InfoContext(ctx, "Inserted default prompt", "name", prompt.Name, "version", prompt.Version)
		case err != nil:
			return fmt.Errorf("failed to check existing prompt %s: %w", prompt.Name, err)
		}
	}

	slog.InfoContext(ctx, "Prompt initialization completed")
	return nil
}
