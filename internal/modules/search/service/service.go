package service

import (
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"bayanika.app/backend/internal/entity"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const activitiesIndex = "activities"

type SearchService interface {
	IndexActivity(activity *entity.Activity) error
	DeleteActivity(id string) error
	GenerateSearchToken() (string, error)
}

type searchService struct {
	client        meilisearch.ServiceManager
	signingKeyUID string
	signingKey    string
	sanitizer     *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	s.initSigningKey()
	return s
}

func (s *searchService) initIndexes() {
	filterableAttrs := []string{"category", "status", "barangay_id"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	_, err := s.client.Index(activitiesIndex).UpdateFilterableAttributes(&filterableInterface)
	if err != nil {
		log.Printf("Failed to update activities filterable attributes: %v", err)
	}

	sortableAttrs := []string{"start_date", "bayanihan_points"}
	_, err = s.client.Index(activitiesIndex).UpdateSortableAttributes(&sortableAttrs)
	if err != nil {
		log.Printf("Failed to update activities sortable attributes: %v", err)
	}

	log.Println("Meilisearch indexes initialized")
}

func (s *searchService) initSigningKey() {
	resp, err := s.client.GetKeys(&meilisearch.KeysQuery{
		Limit: 20,
	})
	if err != nil {
		log.Printf("Failed to get meilisearch keys: %v", err)
		return
	}

	for _, key := range resp.Results {
		if key.Name == "ActivitySearchSigner" {
			s.signingKeyUID = key.UID
			s.signingKey = key.Key
			return
		}
	}

	expiry := time.Now().AddDate(100, 0, 0)

	key, err := s.client.CreateKey(&meilisearch.Key{
		Description: "Key to sign activity search tokens",
		Name:        "ActivitySearchSigner",
		Actions:     []string{"search"},
		Indexes:     []string{activitiesIndex},
		ExpiresAt:   expiry,
	})
	if err != nil {
		log.Printf("Failed to create signing key: %v", err)
		return
	}

	s.signingKeyUID = key.UID
	s.signingKey = key.Key
	log.Println("Created new Meilisearch signing key")
}

type meiliActivityDoc struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	Status          string `json:"status"`
	BarangayID      string `json:"barangay_id"`
	Location        string `json:"location"`
	BayanihanPoints int    `json:"bayanihan_points"`
	StartDate       int64  `json:"start_date"`
}

func (s *searchService) cleanContentForIndex(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	sanitized := s.sanitizer.Sanitize(content)
	cleanText := html.UnescapeString(sanitized)
	cleanText = strings.Join(strings.Fields(cleanText), " ")

	return cleanText
}

func (s *searchService) IndexActivity(activity *entity.Activity) error {
	doc := meiliActivityDoc{
		ID:              activity.ID.String(),
		Title:           activity.Title,
		Description:     s.cleanContentForIndex(activity.Description),
		Category:        activity.Category,
		Status:          activity.Status,
		Location:        getStringOrEmpty(activity.Location),
		BayanihanPoints: activity.BayanihanPoints,
		StartDate:       activity.StartDate.Unix(),
	}
	if activity.BarangayID != nil {
		doc.BarangayID = activity.BarangayID.String()
	}

	task, err := s.client.Index(activitiesIndex).AddDocuments([]meiliActivityDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed activity %s, task id: %d", activity.ID, task.TaskUID)
	return nil
}

func (s *searchService) DeleteActivity(id string) error {
	_, err := s.client.Index(activitiesIndex).DeleteDocument(id)
	return err
}

// GenerateSearchToken returns a tenant token the frontend can use to query
// the activities index directly. Everything in the index is public, so the
// token carries no filter rules.
func (s *searchService) GenerateSearchToken() (string, error) {
	if s.signingKeyUID == "" || s.signingKey == "" {
		return "", fmt.Errorf("signing key not initialized")
	}

	searchRules := map[string]any{
		activitiesIndex: map[string]any{},
	}

	token, err := s.client.GenerateTenantToken(s.signingKeyUID, searchRules, &meilisearch.TenantTokenOptions{
		APIKey:    s.signingKey,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		return "", err
	}

	return token, nil
}

func getStringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	return &s
}
