package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

// Walks a running relay through health, bootstrap, one answer and history.
// Usage: go run scripts/smoke_relay.go [relay base URL]

func prettyPrint(body []byte) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func sendRequest(method, url string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	baseURL := "http://localhost:3000"
	if len(os.Args) > 1 {
		baseURL = os.Args[1]
	}

	color.Cyan("Relay smoke test against %s\n", baseURL)

	color.Yellow("\n1. Health")
	resp, body, err := sendRequest(http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	color.Yellow("\n2. Bootstrap a conversation")
	resp, body, err = sendRequest(http.MethodPost, baseURL+"/api/chat", map[string]interface{}{
		"message":         "Ciao",
		"conversation_id": nil,
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	var chat struct {
		ConversationID string   `json:"conversation_id"`
		UIType         string   `json:"ui_type"`
		Options        []string `json:"options"`
	}
	if err := json.Unmarshal(body, &chat); err != nil || chat.ConversationID == "" {
		color.Red("No conversation id in reply, stopping")
		os.Exit(1)
	}

	color.Yellow("\n3. Answer the opening question")
	answer := "Buongiorno"
	if len(chat.Options) > 0 {
		answer = chat.Options[0]
	}
	resp, body, err = sendRequest(http.MethodPost, baseURL+"/api/chat", map[string]interface{}{
		"message":         answer,
		"conversation_id": chat.ConversationID,
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	color.Yellow("\n4. History of %s", chat.ConversationID)
	resp, body, err = sendRequest(http.MethodGet, baseURL+"/api/conversation/"+chat.ConversationID+"/history", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	color.Yellow("\n5. Unknown conversation history (expects the backend's 404)")
	resp, body, err = sendRequest(http.MethodGet, baseURL+"/api/conversation/does-not-exist/history", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	if resp.StatusCode == http.StatusNotFound {
		color.Green("Status: %s", resp.Status)
	} else {
		color.Red("Status: %s", resp.Status)
	}
	prettyPrint(body)

	color.Cyan("\nDone")
}
