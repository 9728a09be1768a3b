package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type envelope struct {
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
	Pagination *struct {
		TotalCount int `json:"total_count"`
	} `json:"pagination"`
}

type outcome struct {
	ChildID  string
	Status   int
	Code     string
	Duration time.Duration
	Err      error
}

func main() {
	var (
		base     string
		prefix   string
		token    string
		courseID string
		children string
		capacity int
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&prefix, "prefix", "/api/v1", "API prefix")
	flag.StringVar(&token, "token", "", "Admin bearer token (see cmd/devtoken)")
	flag.StringVar(&courseID, "course", "", "Course ID to enroll into")
	flag.StringVar(&children, "children", "", "Comma separated child IDs, one concurrent enroll each")
	flag.IntVar(&capacity, "capacity", 0, "Expected course capacity, 0 skips the bound check")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	childIDs := splitIDs(children)
	if token == "" || courseID == "" || len(childIDs) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	client := &http.Client{Timeout: timeout}
	api := strings.TrimRight(base, "/") + prefix

	outcomes := burst(client, api, token, courseID, childIDs)
	printReport(outcomes)

	enrolled := 0
	for _, o := range outcomes {
		if o.Status == http.StatusCreated {
			enrolled++
		}
	}

	occupancy, err := courseOccupancy(client, api, token, courseID)
	if err != nil {
		log.Fatalf("failed to read course roster: %v", err)
	}
	fmt.Printf("Enrolled in burst: %d, active roster size: %d\n", enrolled, occupancy)

	violations := 0
	if capacity > 0 && occupancy > capacity {
		fmt.Printf("VIOLATION: roster size %d exceeds capacity %d\n", occupancy, capacity)
		violations++
	}
	if capacity > 0 && enrolled > capacity {
		fmt.Printf("VIOLATION: %d successful enrolls for capacity %d\n", enrolled, capacity)
		violations++
	}
	if violations > 0 {
		os.Exit(1)
	}
}

func burst(client *http.Client, api, token, courseID string, childIDs []string) []outcome {
	results := make([]outcome, len(childIDs))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, childID := range childIDs {
		wg.Add(1)
		go func(i int, childID string) {
			defer wg.Done()
			<-start
			results[i] = enroll(client, api, token, courseID, childID)
		}(i, childID)
	}
	close(start)
	wg.Wait()
	return results
}

func enroll(client *http.Client, api, token, courseID, childID string) outcome {
	result := outcome{ChildID: childID}
	body, _ := json.Marshal(map[string]string{"course_id": courseID})
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/children/%s/enrollments", api, childID), bytes.NewReader(body))
	if err != nil {
		result.Err = err
		return result
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	started := time.Now()
	resp, err := client.Do(req)
	result.Duration = time.Since(started)
	if err != nil {
		result.Err = err
		return result
	}
	defer resp.Body.Close()

	result.Status = resp.StatusCode
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Error != nil {
		result.Code = env.Error.Code
	}
	return result
}

func courseOccupancy(client *http.Client, api, token, courseID string) (int, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/admin/courses/%s/enrollments?page_size=1", api, courseID), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return 0, err
	}
	if env.Pagination == nil {
		return 0, errors.New("response has no pagination")
	}
	return env.Pagination.TotalCount, nil
}

func printReport(outcomes []outcome) {
	counts := make(map[string]int)
	var slowest time.Duration
	for _, o := range outcomes {
		key := fmt.Sprintf("%d", o.Status)
		if o.Code != "" {
			key += " " + o.Code
		}
		if o.Err != nil {
			key = "transport error"
			fmt.Printf("%s: %v\n", o.ChildID, o.Err)
		}
		counts[key]++
		if o.Duration > slowest {
			slowest = o.Duration
		}
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%-30s %d\n", k, counts[k])
	}
	fmt.Printf("Slowest request: %s\n", slowest)
}

func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
