package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/prepstack/qbank-be/config"
)

const BATCH_SIZE = 200

var (
	MATERIAL_CLASS        = "StudyMaterial"
	MATERIAL_CLASS_OBJECT = &models.Class{
		Class: MATERIAL_CLASS,
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}},
			{Name: "title", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"text"}},
			{Name: "tags", DataType: []string{"text[]"}},
			{Name: "custom", DataType: []string{"object"},
				NestedProperties: []*models.NestedProperty{
					{Name: "page", DataType: []string{"text"}},
				},
			},
			{Name: "createdAt", DataType: []string{"int"}},
		},
		VectorIndexType: "hnsw",
	}
)

// WeaviateStore backs the doubt-answering retrieval with a StudyMaterial
// class. Vectorization is delegated to the configured text2vec module.
type WeaviateStore struct {
	client *weaviate.Client
}

func NewWeaviateStore(cfg config.WeaviateStoreConfig) (*WeaviateStore, error) {
	var scheme string
	if strings.Contains(cfg.Host, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(cfg.Host, scheme+"://")
	wcfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
		wcfg.Headers = map[string]string{
			"X-Weaviate-Api-Key":     cfg.APIKey,
			"X-Weaviate-Cluster-Url": fmt.Sprintf("%s://%s", scheme, host),
		}
	}
	MATERIAL_CLASS_OBJECT.Vectorizer = cfg.Text2Vec
	MATERIAL_CLASS_OBJECT.ModuleConfig = cfg.ModuleConfig
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %v", err)
	}

	schema, err := client.Schema().Getter().Do(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %v", err)
	}

	hasMaterialClass := false
	for _, class := range schema.Classes {
		if class.Class == MATERIAL_CLASS {
			hasMaterialClass = true
			break
		}
	}
	if !hasMaterialClass {
		err = client.Schema().ClassCreator().WithClass(MATERIAL_CLASS_OBJECT).Do(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to create StudyMaterial class: %v", err)
		}
	}
	return &WeaviateStore{client: client}, nil
}

// ReInit drops and recreates the StudyMaterial class. Destructive; used by
// the materials ingestion CLI with --reinit.
func (s *WeaviateStore) ReInit() error {
	err := s.client.Schema().ClassDeleter().WithClassName(MATERIAL_CLASS).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to delete StudyMaterial class: %v", err)
	}

	err = s.client.Schema().ClassCreator().WithClass(MATERIAL_CLASS_OBJECT).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to create StudyMaterial class: %v", err)
	}
	return nil
}

func (s *WeaviateStore) UpsertDocument(ctx context.Context, doc *Document) error {
	_, err := s.client.Data().Creator().
		WithClassName(MATERIAL_CLASS).
		WithProperties(chunkProperties(*doc)).
		Do(ctx)
	return err
}

func (s *WeaviateStore) BatchInsertDocuments(ctx context.Context, docs []Document) error {
	total := len(docs)
	for i := 0; i < total; i += BATCH_SIZE {
		end := i + BATCH_SIZE
		if end > total {
			end = total
		}

		batcher := s.client.Batch().ObjectsBatcher()
		for j := i; j < end; j++ {
			batcher = batcher.WithObjects(&models.Object{
				Class:      MATERIAL_CLASS,
				Properties: chunkProperties(docs[j]),
			})
		}

		if _, err := batcher.Do(ctx); err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %v", i, end, err)
		}
	}

	return nil
}

func (s *WeaviateStore) DeleteDocument(ctx context.Context, id string) error {
	return s.client.Data().Deleter().
		WithClassName(MATERIAL_CLASS).
		WithID(id).
		Do(ctx)
}

func (s *WeaviateStore) SearchSimilarWithMetadata(ctx context.Context, queries []string, metadata Metadata, limit int) ([]Document, []float32, error) {
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "title"},
		{Name: "source"},
		{Name: "tags"},
		{Name: "custom", Fields: []graphql.Field{{Name: "page"}}},
		{Name: "createdAt"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}, {Name: "id"}}},
	}
	nearText := s.client.GraphQL().NearTextArgBuilder().
		WithConcepts(queries).
		WithDistance(0.7)
	where := buildMetadataFilter(metadata)

	getBuilder := s.client.GraphQL().Get().
		WithClassName(MATERIAL_CLASS).
		WithFields(fields...).
		WithNearText(nearText)
	if limit > 0 {
		getBuilder = getBuilder.WithLimit(limit)
	}
	if where != nil {
		getBuilder = getBuilder.WithWhere(where)
	}

	result, err := getBuilder.Do(ctx)
	if err != nil {
		return nil, nil, err
	}
	if result.Errors != nil {
		return nil, nil, fmt.Errorf("search failed: %v", result.Errors[0].Message)
	}

	var docs []Document
	var distances []float32

	if data, ok := result.Data["Get"].(map[string]interface{})[MATERIAL_CLASS].([]interface{}); ok {
		for _, item := range data {
			doc, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			document := Document{
				Content: stringProp(doc, "content"),
				Metadata: Metadata{
					Title:  stringProp(doc, "title"),
					Source: stringProp(doc, "source"),
					Tags:   parseStringArray(doc["tags"]),
					Custom: parseStringMap(doc["custom"]),
				},
			}
			if created, ok := doc["createdAt"].(float64); ok {
				document.CreatedAt = int64(created)
			}
			if additional, ok := doc["_additional"].(map[string]interface{}); ok {
				if id, ok := additional["id"].(string); ok {
					document.ID = id
				}
				if dist, ok := additional["distance"].(float64); ok {
					distances = append(distances, float32(dist))
					document.Metadata.Custom["distance"] = fmt.Sprintf("%f", dist)
				}
			}
			docs = append(docs, document)
		}
	}

	return docs, distances, nil
}

func (s *WeaviateStore) SearchSimilar(ctx context.Context, queries []string, limit int) ([]Document, []float32, error) {
	return s.SearchSimilarWithMetadata(ctx, queries, Metadata{}, limit)
}

// DocumentCount reports how many chunks the class holds. Used by the doubt
// diagnostic endpoint.
func (s *WeaviateStore) DocumentCount(ctx context.Context) (int, error) {
	result, err := s.client.GraphQL().Aggregate().
		WithClassName(MATERIAL_CLASS).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if result.Errors != nil {
		return 0, fmt.Errorf("aggregate failed: %v", result.Errors[0].Message)
	}

	if data, ok := result.Data["Aggregate"].(map[string]interface{})[MATERIAL_CLASS].([]interface{}); ok && len(data) > 0 {
		if agg, ok := data[0].(map[string]interface{}); ok {
			if meta, ok := agg["meta"].(map[string]interface{}); ok {
				if count, ok := meta["count"].(float64); ok {
					return int(count), nil
				}
			}
		}
	}
	return 0, nil
}

func chunkProperties(doc Document) map[string]interface{} {
	return map[string]interface{}{
		"content":   doc.Content,
		"title":     doc.Metadata.Title,
		"source":    doc.Metadata.Source,
		"tags":      doc.Metadata.Tags,
		"custom":    doc.Metadata.Custom,
		"createdAt": doc.CreatedAt,
	}
}

func buildMetadataFilter(metadata Metadata) *filters.WhereBuilder {
	if len(metadata.Tags) == 0 {
		return nil
	}
	return filters.Where().
		WithPath([]string{"tags"}).
		WithOperator(filters.ContainsAny).
		WithValueText(metadata.Tags...)
}

func stringProp(doc map[string]interface{}, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func parseStringArray(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func parseStringMap(v interface{}) map[string]string {
	out := make(map[string]string)
	m, ok := v.(map[string]interface{})
	if !ok {
		return out
	}
	for k, item := range m {
		if s, ok := item.(string); ok {
			out[k] = s
		}
	}
	return out
}
