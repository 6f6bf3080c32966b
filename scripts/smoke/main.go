// Command smoke drives a running portal instance through the core auth,
// leave and complaint flows and reports per-step results. Intended for
// post-deploy verification against a disposable environment; it registers
// a throwaway account on every run.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type step struct {
	Name       string
	Method     string
	Path       string
	Body       interface{}
	WantStatus int
	Authorized bool
	Capture    func(body []byte) error
}

type result struct {
	Step     step
	Status   int
	OK       bool
	Duration time.Duration
	Error    error
}

type session struct {
	token string
	email string
}

func main() {
	var (
		base     string
		timeout  time.Duration
		password string
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "Portal API base URL")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.StringVar(&password, "password", "Smoke1234", "Password for the throwaway account")
	flag.Parse()

	client := &http.Client{Timeout: timeout}
	sess := &session{email: fmt.Sprintf("smoke+%d@example.com", time.Now().Unix())}

	steps := buildSteps(sess, password)
	var results []result
	failed := 0

	for _, s := range steps {
		res := runStep(client, base, sess, s)
		if !res.OK {
			failed++
		}
		results = append(results, res)
	}

	printReport(results)
	fmt.Printf("Steps: %d, Failed: %d\n", len(results), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func buildSteps(sess *session, password string) []step {
	today := time.Now().UTC()
	start := today.AddDate(0, 1, 0).Format(time.DateOnly)
	end := today.AddDate(0, 1, 2).Format(time.DateOnly)

	return []step{
		{Name: "health", Method: http.MethodGet, Path: "/health", WantStatus: http.StatusOK},
		{Name: "ready", Method: http.MethodGet, Path: "/ready", WantStatus: http.StatusOK},
		{
			Name:       "register",
			Method:     http.MethodPost,
			Path:       "/api/auth/register",
			WantStatus: http.StatusCreated,
			Body: map[string]string{
				"firstName": "Smoke",
				"lastName":  "Check",
				"email":     sess.email,
				"password":  password,
			},
			Capture: sess.captureToken,
		},
		{
			Name:       "login",
			Method:     http.MethodPost,
			Path:       "/api/auth/login",
			WantStatus: http.StatusOK,
			Body:       map[string]string{"email": sess.email, "password": password},
			Capture:    sess.captureToken,
		},
		{Name: "me", Method: http.MethodGet, Path: "/api/auth/me", WantStatus: http.StatusOK, Authorized: true},
		{
			Name:       "submit leave",
			Method:     http.MethodPost,
			Path:       "/api/leave/submit",
			WantStatus: http.StatusCreated,
			Authorized: true,
			Body:       map[string]string{"startDate": start, "endDate": end, "reason": "smoke check"},
		},
		{Name: "my leave requests", Method: http.MethodGet, Path: "/api/leave/my-requests", WantStatus: http.StatusOK, Authorized: true},
		{
			Name:       "overlapping leave rejected",
			Method:     http.MethodPost,
			Path:       "/api/leave/submit",
			WantStatus: http.StatusConflict,
			Authorized: true,
			Body:       map[string]string{"startDate": start, "endDate": end, "reason": "duplicate"},
		},
		{
			Name:       "submit complaint",
			Method:     http.MethodPost,
			Path:       "/api/complaints",
			WantStatus: http.StatusCreated,
			Authorized: true,
			Body:       map[string]string{"title": "Smoke complaint", "description": "created by the smoke script"},
		},
		{Name: "my complaints", Method: http.MethodGet, Path: "/api/complaints/my", WantStatus: http.StatusOK, Authorized: true},
		{Name: "employee denied admin", Method: http.MethodGet, Path: "/api/admin/users", WantStatus: http.StatusForbidden, Authorized: true},
		{Name: "anonymous denied", Method: http.MethodGet, Path: "/api/leave/my-requests", WantStatus: http.StatusUnauthorized},
	}
}

func runStep(client *http.Client, base string, sess *session, s step) result {
	res := result{Step: s}

	var reader io.Reader
	if s.Body != nil {
		payload, err := json.Marshal(s.Body)
		if err != nil {
			res.Error = fmt.Errorf("marshal body: %w", err)
			return res
		}
		reader = bytes.NewReader(payload)
	}

	url := strings.TrimRight(base, "/") + s.Path
	req, err := http.NewRequest(s.Method, url, reader)
	if err != nil {
		res.Error = fmt.Errorf("build request: %w", err)
		return res
	}
	if s.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.Authorized {
		if sess.token == "" {
			res.Error = fmt.Errorf("no token captured before authorized step")
			return res
		}
		req.Header.Set("Authorization", "Bearer "+sess.token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = fmt.Errorf("request failed: %w", err)
		return res
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Error = fmt.Errorf("read body: %w", err)
		return res
	}

	res.Status = resp.StatusCode
	if resp.StatusCode != s.WantStatus {
		res.Error = fmt.Errorf("expected status %d, got %d", s.WantStatus, resp.StatusCode)
		return res
	}

	if s.Capture != nil {
		if err := s.Capture(body); err != nil {
			res.Error = err
			return res
		}
	}

	res.OK = true
	return res
}

func (s *session) captureToken(body []byte) error {
	var envelope struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	if envelope.Data.Token == "" {
		return fmt.Errorf("auth response contained no token")
	}
	s.token = envelope.Data.Token
	return nil
}

func printReport(results []result) {
	fmt.Println("Portal Smoke Report")
	fmt.Println("===================")
	for _, res := range results {
		status := "OK"
		if !res.OK {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s %s\n", status, res.Step.Name, res.Step.Method, res.Step.Path)
		fmt.Printf("  Status: %d (%s)\n", res.Status, res.Duration)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		}
	}
}
