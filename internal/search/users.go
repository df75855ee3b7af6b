package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/mpetrashov/user-service/internal/models"
)

// UserDoc is the indexed projection of a user. The password hash never
// enters the index.
type UserDoc struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	OtherName string `json:"other_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// Users maintains and queries the user search index. A nil *Users skips
// indexing, so the service runs without Elasticsearch configured.
type Users struct {
	ES    *elasticsearch.Client
	Index string
}

func docFromUser(u *models.User) UserDoc {
	return UserDoc{
		ID:        u.ID.String(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		OtherName: u.OtherName,
		Phone:     u.Phone,
		Email:     u.Email,
		Role:      string(u.Role),
	}
}

func (s *Users) IndexUser(ctx context.Context, u *models.User) error {
	if s == nil || s.ES == nil {
		return nil
	}

	doc := docFromUser(u)
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	res, err := s.ES.Index(
		s.Index,
		bytes.NewReader(data),
		s.ES.Index.WithDocumentID(doc.ID),
		s.ES.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index user: %s", res.Status())
	}
	return nil
}

func (s *Users) DeleteUser(ctx context.Context, id string) error {
	if s == nil || s.ES == nil {
		return nil
	}

	res, err := s.ES.Delete(s.Index, id, s.ES.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete user doc: %s", res.Status())
	}
	return nil
}

func (s *Users) Search(ctx context.Context, query string, from, size int) (int64, []UserDoc, error) {
	if s == nil || s.ES == nil {
		return 0, nil, fmt.Errorf("search is not configured")
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"email^2", "first_name", "last_name", "other_name"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.Index),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search users: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source UserDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	docs := make([]UserDoc, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return r.Hits.Total.Value, docs, nil
}

// IndexName builds the per-environment index name.
func IndexName(serviceName string) string {
	return strings.ToLower(serviceName) + "-users"
}
