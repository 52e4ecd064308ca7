// seed_demo.go: standalone script that creates a demo organization,
// caseworkers and QR codes through the Intake admin API.
//
// Usage:
//
//	go run scripts/seed_demo.go -api http://localhost:8700 -token $INTAKE_ADMIN_TOKEN
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
)

type seedRequest struct {
	path string
	name string
	body interface{}
}

func main() {
	apiURL := flag.String("api", "http://localhost:8700", "Intake API base URL")
	token := flag.String("token", "", "admin bearer token")
	dryRun := flag.Bool("dry-run", false, "print requests without sending")
	flag.Parse()

	requests := []seedRequest{
		{"/api/v1/admin/organizations", "org_demo", map[string]interface{}{
			"id":            "org_demo",
			"name":          "Demo Housing Services",
			"contact_email": "intake@example.org",
			"zones":         []string{"downtown", "north", "west", "east"},
		}},
		{"/api/v1/admin/caseworkers", "cw_demo_1", map[string]interface{}{
			"id":              "cw_demo_1",
			"organization_id": "org_demo",
			"name":            "Jordan Avery",
			"email":           "jordan@example.org",
			"assigned_zones":  []string{"downtown", "north"},
		}},
		{"/api/v1/admin/caseworkers", "cw_demo_2", map[string]interface{}{
			"id":              "cw_demo_2",
			"organization_id": "org_demo",
			"name":            "Riley Chen",
			"email":           "riley@example.org",
			"assigned_zones":  []string{"west", "east"},
		}},
	}

	qrCodes := []struct{ code, location, zone string }{
		{"QR001", "Central Library", "downtown"},
		{"QR002", "Transit Center", "downtown"},
		{"QR003", "North Community Center", "north"},
		{"QR004", "Riverside Park", "west"},
		{"QR005", "Eastside Food Bank", "east"},
	}
	for _, qr := range qrCodes {
		requests = append(requests, seedRequest{"/api/v1/admin/qr-codes", qr.code, map[string]interface{}{
			"code":            qr.code,
			"organization_id": "org_demo",
			"location":        qr.location,
			"zone":            qr.zone,
		}})
	}

	if *dryRun {
		for i, r := range requests {
			fmt.Printf("[%d] POST %s (%s)\n", i+1, r.path, r.name)
		}
		return
	}

	client := &http.Client{}
	created, skipped := 0, 0
	for _, r := range requests {
		body, _ := json.Marshal(r.body)
		req, err := http.NewRequest("POST", *apiURL+r.path, bytes.NewReader(body))
		if err != nil {
			log.Printf("skip %s: %v", r.name, err)
			skipped++
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		if *token != "" {
			req.Header.Set("Authorization", "Bearer "+*token)
		}

		resp, err := client.Do(req)
		if err != nil {
			log.Printf("skip %s: %v", r.name, err)
			skipped++
			continue
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusCreated {
			created++
		} else {
			log.Printf("skip %s: status %d", r.name, resp.StatusCode)
			skipped++
		}
	}
	log.Printf("done: %d created, %d skipped", created, skipped)
}
