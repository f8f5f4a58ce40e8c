// Package salesqueryctl implements the salesquery API command line client.
package salesqueryctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// commandError carries a non-usage failure; anything else cobra returns is a usage error.
type commandError struct {
	err error
}

func (e commandError) Error() string { return e.err.Error() }

type runner struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	rawJSON bool
	noColor bool
	client  *http.Client
	stdout  io.Writer
	stderr  io.Writer
}

// Run executes one command and returns the process exit code: 0 on success, 1 when the
// request fails and 2 on usage errors.
func Run(ctx context.Context, args []string, defaults Options) int {
	r := &runner{
		client: defaults.HTTPClient,
		stdout: defaults.Stdout,
		stderr: defaults.Stderr,
	}
	if r.stdout == nil {
		r.stdout = io.Discard
	}
	if r.stderr == nil {
		r.stderr = io.Discard
	}

	root := r.rootCommand(defaults)
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var failed commandError
	if errors.As(err, &failed) {
		r.printError(failed.err)
		return 1
	}
	_, _ = fmt.Fprintf(r.stderr, "%v\n\n", err)
	_, _ = fmt.Fprint(r.stderr, root.UsageString())
	return 2
}

func (r *runner) rootCommand(defaults Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "salesqueryctl",
		Short:         "Ask questions about the sales dataset through the salesquery API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("a command is required")
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&r.baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8000"), "salesquery API base URL")
	flags.StringVar(&r.apiKey, "api-key", defaults.APIKey, "API key for authenticated requests")
	flags.DurationVar(&r.timeout, "timeout", durationOr(defaults.Timeout, 2*time.Minute), "HTTP timeout (e.g. 90s)")
	flags.BoolVar(&r.rawJSON, "json", false, "print the raw JSON response")
	flags.BoolVar(&r.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		r.askCommand("ask", "Answer a question with the SQL pipeline", "/query/ownmodel"),
		r.askCommand("ask-df", "Answer a question directly from the dataframe snapshot", "/query/pandasai"),
		r.historyCommand(),
		r.schemaCommand(),
		r.simpleCommand("reload", "Reload the dataset from the configured CSV source", http.MethodPost, "/v1/dataset/reload"),
		r.simpleCommand("health", "Check that the API is running", http.MethodGet, "/v1/health"),
		r.simpleCommand("ready", "Check database, object store and model readiness", http.MethodGet, "/v1/ready"),
	)
	return root
}

func (r *runner) askCommand(name, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <question>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question is required")
			}
			body, err := json.Marshal(map[string]string{"question": question})
			if err != nil {
				return commandError{err}
			}
			raw, err := r.do(cmd.Context(), http.MethodPost, path, body)
			if err != nil {
				return commandError{err}
			}
			if r.rawJSON {
				return r.printJSON(raw)
			}
			var response struct {
				Result string `json:"result"`
			}
			if err := json.Unmarshal(raw, &response); err != nil {
				return commandError{fmt.Errorf("decode response: %w", err)}
			}
			_, _ = fmt.Fprintln(r.stdout, strings.TrimRight(response.Result, "\n"))
			return nil
		},
	}
}

func (r *runner) historyCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently asked questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			raw, err := r.do(cmd.Context(), http.MethodGet, "/v1/history?limit="+strconv.Itoa(limit), nil)
			if err != nil {
				return commandError{err}
			}
			if r.rawJSON {
				return r.printJSON(raw)
			}
			var response struct {
				Entries []historyEntry `json:"entries"`
			}
			if err := json.Unmarshal(raw, &response); err != nil {
				return commandError{fmt.Errorf("decode response: %w", err)}
			}
			if len(response.Entries) == 0 {
				_, _ = fmt.Fprintln(r.stdout, "no questions recorded yet")
				return nil
			}
			renderHistory(r.stdout, response.Entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to fetch")
	return cmd
}

func (r *runner) schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the orders table columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := r.do(cmd.Context(), http.MethodGet, "/v1/schema", nil)
			if err != nil {
				return commandError{err}
			}
			if r.rawJSON {
				return r.printJSON(raw)
			}
			var response schemaResponse
			if err := json.Unmarshal(raw, &response); err != nil {
				return commandError{fmt.Errorf("decode response: %w", err)}
			}
			if response.Loaded {
				_, _ = r.heading().Fprintf(r.stdout, "%s (%d rows)\n", response.Table, response.RowCount)
			} else {
				_, _ = r.heading().Fprintf(r.stdout, "%s (not loaded)\n", response.Table)
			}
			renderSchema(r.stdout, response.Columns)
			return nil
		},
	}
}

func (r *runner) simpleCommand(name, short, method, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := r.do(cmd.Context(), method, path, nil)
			if err != nil {
				return commandError{err}
			}
			return r.printJSON(raw)
		},
	}
}

// httpError is returned for responses with status >= 400.
type httpError struct {
	Status    int
	Detail    string
	ErrorCode string
	TraceID   string
}

func (e *httpError) Error() string {
	message := fmt.Sprintf("http %d: %s", e.Status, e.Detail)
	if e.ErrorCode != "" {
		message += " (" + e.ErrorCode + ")"
	}
	if e.TraceID != "" {
		message += " trace_id=" + e.TraceID
	}
	return message
}

func (r *runner) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	endpoint := strings.TrimRight(r.baseURL, "/") + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := strings.TrimSpace(r.apiKey); key != "" {
		req.Header.Set("X-API-Key", key)
	}

	client := r.client
	if client == nil {
		client = &http.Client{Timeout: r.timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, decodeHTTPError(resp.StatusCode, raw)
	}
	return raw, nil
}

func decodeHTTPError(status int, raw []byte) error {
	var envelope struct {
		Detail    string `json:"detail"`
		ErrorCode string `json:"error_code"`
		TraceID   string `json:"trace_id"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Detail == "" {
		return &httpError{Status: status, Detail: strings.TrimSpace(string(raw))}
	}
	return &httpError{Status: status, Detail: envelope.Detail, ErrorCode: envelope.ErrorCode, TraceID: envelope.TraceID}
}

func (r *runner) printJSON(raw []byte) error {
	if pretty, ok := prettyJSON(raw); ok {
		_, _ = fmt.Fprintln(r.stdout, pretty)
		return nil
	}
	if len(raw) > 0 {
		_, _ = fmt.Fprintln(r.stdout, string(raw))
	}
	return nil
}

func (r *runner) printError(err error) {
	c := color.New(color.FgRed)
	if r.noColor {
		c.DisableColor()
	}
	_, _ = c.Fprintln(r.stderr, err.Error())
}

func (r *runner) heading() *color.Color {
	c := color.New(color.FgCyan, color.Bold)
	if r.noColor {
		c.DisableColor()
	}
	return c
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
