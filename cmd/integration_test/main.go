package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plateful/api/internal/config"
	"github.com/plateful/api/internal/database"
)

const baseURL = "http://localhost:8080/api/v1"

func main() {
	cfg := config.Load()

	db, err := database.NewPostgres(cfg.DatabaseURL, cfg.UseDirectDB, zap.NewNop())
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// 1. Seed audience data
	city := fmt.Sprintf("Smoketown-%s", uuid.New().String()[:8])
	log.Printf("Seeding diners in city %s", city)
	for i := 0; i < 3; i++ {
		_, err = db.Pool().Exec(ctx, `
			INSERT INTO diners (first_name, last_name, city, email, phone, consent_email, consent_sms)
			VALUES ($1, $2, $3, $4, $5, TRUE, TRUE)
		`, fmt.Sprintf("Diner%d", i), "Smoke", city,
			fmt.Sprintf("diner%d-%s@example.com", i, city), fmt.Sprintf("+1555000%04d", i))
		if err != nil {
			log.Fatalf("Failed to seed diner: %v", err)
		}
	}

	// 2. Register and log in over HTTP
	email := fmt.Sprintf("owner-%s@example.com", uuid.New().String()[:8])
	var registered struct {
		Token string `json:"token"`
	}
	postJSON("/auth/register", "", map[string]interface{}{
		"email":     email,
		"full_name": "Smoke Tester",
		"password":  "smoke-test-pass",
	}, &registered)
	if registered.Token == "" {
		log.Fatal("Registration returned no token")
	}
	token := registered.Token
	log.Printf("Registered %s", email)

	// 3. Create the restaurant profile
	putJSON("/me/restaurant", token, map[string]interface{}{
		"name":    "Smoke Test Bistro",
		"cuisine": "Italian",
		"city":    city,
	}, nil)
	log.Println("Restaurant profile created")

	// 4. Create an email campaign targeting the seeded city
	var created struct {
		CampaignID   string `json:"campaignId"`
		AudienceSize int    `json:"audienceSize"`
	}
	postJSON("/campaigns", token, map[string]interface{}{
		"channel": "email",
		"name":    "Smoke Campaign",
		"subject": "Hi {FirstName}, dinner on us",
		"body":    "Hi {FirstName}, come try our new menu. Reserve a table today!",
		"filters": map[string]interface{}{"city": city},
	}, &created)
	if created.AudienceSize != 3 {
		log.Fatalf("Expected audience of 3, got %d", created.AudienceSize)
	}
	log.Printf("Campaign %s created with %d recipients", created.CampaignID, created.AudienceSize)

	// 5. Verify recipients were recorded
	var count int
	err = db.Pool().QueryRow(ctx,
		"SELECT COUNT(*) FROM campaign_recipients WHERE campaign_id = $1", created.CampaignID).Scan(&count)
	if err != nil {
		log.Fatalf("Failed to query recipients: %v", err)
	}
	if count != 3 {
		log.Fatalf("Expected 3 recipients in DB, got %d", count)
	}

	log.Println("SUCCESS: register, restaurant, campaign and recipients verified")
}

func postJSON(path, token string, payload interface{}, out interface{}) {
	doJSON(http.MethodPost, path, token, payload, out)
}

func putJSON(path, token string, payload interface{}, out interface{}) {
	doJSON(http.MethodPut, path, token, payload, out)
}

func doJSON(method, path, token string, payload interface{}, out interface{}) {
	body, _ := json.Marshal(payload)

	// Retry loop for server startup
	var resp *http.Response
	var err error
	for i := 0; i < 10; i++ {
		req, _ := http.NewRequest(method, baseURL+path, bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		client := &http.Client{Timeout: 5 * time.Second}
		resp, err = client.Do(req)
		if err == nil {
			break
		}
		log.Printf("Waiting for server... %v", err)
		time.Sleep(1 * time.Second)
	}
	if err != nil {
		log.Fatalf("Request %s %s failed after retries: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		log.Fatalf("%s %s: expected 2xx, got %d. Body: %s", method, path, resp.StatusCode, buf.String())
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("Failed to decode %s %s response: %v", method, path, err)
		}
	}
}
