// Package main runs a demo WebSocket client for work-order events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

func post(base, path string, body string, out any) {
	resp, err := http.Post(base+path, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatal(err)
		}
	}
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Seed a category, property, request and work order
	var cat struct {
		ID string `json:"id"`
	}
	post(base, "/v1/categories", `{"name":"Plumbing"}`, &cat)
	var prop struct {
		ID string `json:"id"`
	}
	post(base, "/v1/properties", `{"zipCode":"94103","location":{"lat":37.77,"lng":-122.41}}`, &prop)
	var mr struct {
		ID string `json:"id"`
	}
	post(base, "/v1/maintenance-requests",
		fmt.Sprintf(`{"categoryId":%q,"propertyId":%q,"description":"leaking sink"}`, cat.ID, prop.ID), &mr)
	var wo struct {
		ID string `json:"id"`
	}
	post(base, "/v1/work-orders", fmt.Sprintf(`{"requestId":%q}`, mr.ID), &wo)
	log.Printf("Work order ID: %s", wo.ID)

	// One eligible vendor so routing assigns instead of escalating
	post(base, "/v1/vendors",
		`{"name":"Ace Plumbing","specialty":"Plumbing","serviceAreas":["94103"],"standardRate":45,"location":{"lat":37.76,"lng":-122.42}}`, nil)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/events/ws", RawQuery: "workOrderId=" + wo.ID}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsEvent
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			b, _ := json.Marshal(m.Data)
			log.Printf("WS <- %s: %s", m.Type, string(b))
		}
	}()

	// Trigger routing, which publishes a workorder.assigned event
	time.Sleep(500 * time.Millisecond)
	post(base, "/v1/work-orders/"+wo.ID+"/route", "{}", nil)

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
