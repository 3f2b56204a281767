// cloudctl is a small terminal chat client for the Cloud backend. It sends
// turns to the relay endpoint, reassembles the SSE stream and renders marker
// widgets as plain text.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"cloud-backend/internal/markers"
	"cloud-backend/internal/models"
	"cloud-backend/internal/sse"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "backend base URL")
	token := flag.String("token", os.Getenv("CLOUD_TOKEN"), "bearer token")
	webSearch := flag.Bool("web-search", false, "enable the web search tool")
	cloudPlus := flag.Bool("cloud-plus", false, "enable image search/generation")
	flag.Parse()

	if *token == "" {
		log.Fatal("a bearer token is required (-token or CLOUD_TOKEN)")
	}

	var history []models.ChatTurn
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("cloudctl — type a message, Ctrl-D to quit")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		history = append(history, models.TextTurn("user", text))
		reply, err := send(*server, *token, history, *webSearch, *cloudPlus)
		if err != nil {
			log.Printf("send failed: %v", err)
			history = history[:len(history)-1]
			continue
		}
		history = append(history, models.TextTurn("assistant", reply))
	}
}

func send(server, token string, history []models.ChatTurn, webSearch, cloudPlus bool) (string, error) {
	body, err := json.Marshal(models.ChatRequest{
		Messages:         history,
		WebSearchEnabled: webSearch,
		CloudPlusEnabled: cloudPlus,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, server+"/api/v1/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var envelope models.ErrorResponse
		json.NewDecoder(resp.Body).Decode(&envelope)
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, envelope.Error.Message)
	}

	r := sse.NewReassembler()
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			r.Push(buf[:n])
		}
		if readErr != nil {
			break
		}
	}
	if r.State() != sse.StateDone {
		r.Fail()
	}

	message := r.Message()
	clean, blocks := markers.Extract(message)

	if clean != "" {
		fmt.Println(clean)
	}
	for _, b := range blocks {
		switch b.Kind {
		case markers.KindWeather:
			w := b.Weather
			fmt.Printf("  [weather] %s: %.0f°, %s, humidity %.0f%%, wind %.0f\n",
				w.Location, w.Temperature, w.Condition, w.Humidity, w.WindSpeed)
		case markers.KindImageGallery:
			for _, u := range b.Gallery {
				fmt.Printf("  [image] %s\n", u)
			}
		case markers.KindAIImage:
			fmt.Printf("  [generated image] %s (prompt: %s)\n", b.AIImage.URL, b.AIImage.Prompt)
		}
	}

	return message, nil
}
