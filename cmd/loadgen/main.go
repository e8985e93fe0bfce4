package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// loadgen hammers a single trade's payment endpoint with concurrent requests.
// Exactly one request should win; the rest report the payment as already done.
func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	requests := flag.Int("n", 100, "number of concurrent payment requests")
	flag.Parse()

	client := &http.Client{Timeout: 30 * time.Second}

	memberID, err := createMember(client, *baseURL)
	if err != nil {
		log.Fatalf("create member failed: %v", err)
	}
	tradeID, err := createTrade(client, *baseURL, memberID)
	if err != nil {
		log.Fatalf("create trade failed: %v", err)
	}
	log.Printf("member %d, trade %d, firing %d payment requests", memberID, tradeID, *requests)

	var wg sync.WaitGroup
	wg.Add(*requests)

	var success, conflict, failed int64
	paymentURL := fmt.Sprintf("%s/api/v1/trades/%d/payment", *baseURL, tradeID)

	startTime := time.Now()
	for i := 0; i < *requests; i++ {
		go func() {
			defer wg.Done()

			resp, err := client.Post(paymentURL, "application/json", nil)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusOK:
				atomic.AddInt64(&success, 1)
			case http.StatusBadRequest:
				atomic.AddInt64(&conflict, 1)
			default:
				atomic.AddInt64(&failed, 1)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(startTime)

	fmt.Printf("Completed %d requests in %v\n", *requests, elapsed)
	fmt.Printf("success=%d already_done=%d failed=%d\n", success, conflict, failed)
	if success != 1 {
		log.Fatalf("expected exactly 1 successful payment, got %d", success)
	}
}

func createMember(client *http.Client, baseURL string) (int64, error) {
	body := map[string]string{
		"name":         "loadgen",
		"balance":      "10000.00",
		"balanceLimit": "100000.00",
		"onceLimit":    "5000.00",
		"dailyLimit":   "10000.00",
		"monthlyLimit": "30000.00",
	}
	var out struct {
		MemberID int64 `json:"memberId"`
	}
	if err := post(client, baseURL+"/api/v1/members", body, &out); err != nil {
		return 0, err
	}
	return out.MemberID, nil
}

func createTrade(client *http.Client, baseURL string, memberID int64) (int64, error) {
	body := map[string]string{
		"paymentAmount": "500.00",
		"paybackAmount": "50.00",
	}
	var out struct {
		TradeID int64 `json:"tradeId"`
	}
	url := fmt.Sprintf("%s/api/v1/members/%d/trades", baseURL, memberID)
	if err := post(client, url, body, &out); err != nil {
		return 0, err
	}
	return out.TradeID, nil
}

func post(client *http.Client, url string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, data)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
