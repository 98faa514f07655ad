// Package tabletalkctl is the command-line client for the tabletalk API.
package tabletalkctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// requestError is a failed or rejected API call, as opposed to a usage error.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// Run executes one command and returns the process exit code: 0 on success,
// 1 when the API call fails and 2 on usage errors.
func Run(ctx context.Context, args []string, defaults Options) int {
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	root := NewRootCommand(defaults)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			_, _ = fmt.Fprintln(stderr, reqErr.Error())
			return 1
		}
		_, _ = fmt.Fprintf(stderr, "%v\n\n", err)
		_, _ = fmt.Fprint(stderr, root.UsageString())
		return 2
	}
	return 0
}

type client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	stdout  io.Writer
}

func NewRootCommand(defaults Options) *cobra.Command {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	c := &client{stdout: stdout}

	root := &cobra.Command{
		Use:           "tabletalkctl",
		Short:         "Ask questions about uploaded tables through the tabletalk API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			c.http = defaults.HTTPClient
			if c.http == nil {
				c.http = &http.Client{Timeout: c.timeout}
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&c.baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "tabletalk API base URL")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", durationOr(defaults.Timeout, 60*time.Second), "HTTP timeout (e.g. 30s)")

	root.AddCommand(
		simpleCommand(c, "health", "Check API liveness", http.MethodGet, "/v1/health"),
		simpleCommand(c, "ready", "Check API readiness", http.MethodGet, "/v1/ready"),
		simpleCommand(c, "databases", "List databases", http.MethodGet, "/v1/databases"),
		simpleCommand(c, "rebuild-examples", "Drop and reseed the example index", http.MethodPost, "/v1/examples/rebuild"),
		databaseCommand(c, "tables <db>", "List tables of a database", http.MethodGet, "/v1/databases/%s/tables"),
		databaseCommand(c, "sync <db>", "Reconcile the schema index of a database", http.MethodPost, "/v1/databases/%s/schema/sync"),
		databaseCommand(c, "index <db>", "Dump the indexed schema and example documents", http.MethodGet, "/v1/debug/index/%s"),
		newCreateCommand(c),
		newDescribeCommand(c),
		newDropCommand(c),
		newArchivesCommand(c),
		newAskCommand(c),
		newQueryCommand(c),
		newUploadCommand(c),
	)
	return root
}

func simpleCommand(c *client, use, short, method, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.do(cmd.Context(), method, path, nil, "")
		},
	}
}

func databaseCommand(c *client, use, short, method, pathFormat string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(cmd.Context(), method, fmt.Sprintf(pathFormat, url.PathEscape(args[0])), nil, "")
		},
	}
}

func newCreateCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "create <db>",
		Short: "Create a database if it does not exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.doJSON(cmd.Context(), http.MethodPost, "/v1/databases", map[string]any{"name": args[0]})
		},
	}
}

func newDescribeCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <db> <table>",
		Short: "Show the columns of a table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(cmd.Context(), http.MethodGet, tablePath(args[0], args[1]), nil, "")
		},
	}
}

func newDropCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <db> <table>",
		Short: "Drop a table and purge its upload archives",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(cmd.Context(), http.MethodDelete, tablePath(args[0], args[1]), nil, "")
		},
	}
}

func newArchivesCommand(c *client) *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "archives <db>",
		Short: "List archived uploads of a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/v1/databases/%s/archives", url.PathEscape(args[0]))
			if table != "" {
				path += "?" + url.Values{"table": {table}}.Encode()
			}
			return c.do(cmd.Context(), http.MethodGet, path, nil, "")
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "only list archives of this table")
	return cmd
}

func newAskCommand(c *client) *cobra.Command {
	var (
		table    string
		execute  bool
		rowLimit int
	)
	cmd := &cobra.Command{
		Use:   "ask <db> <question>",
		Short: "Generate SQL for a natural-language question",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"question": strings.Join(args[1:], " "),
				"execute":  execute,
			}
			if table != "" {
				payload["table_name"] = table
			}
			if rowLimit > 0 {
				payload["row_limit"] = rowLimit
			}
			return c.doJSON(cmd.Context(), http.MethodPost, fmt.Sprintf("/v1/databases/%s/generate", url.PathEscape(args[0])), payload)
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table the question is about")
	cmd.Flags().BoolVar(&execute, "execute", false, "run the generated query")
	cmd.Flags().IntVar(&rowLimit, "row-limit", 0, "row limit when executing (server default when 0)")
	return cmd
}

func newQueryCommand(c *client) *cobra.Command {
	var rowLimit int
	cmd := &cobra.Command{
		Use:   "query <db> <sql>",
		Short: "Run a read-only SQL query",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"sql": strings.Join(args[1:], " ")}
			if rowLimit > 0 {
				payload["row_limit"] = rowLimit
			}
			return c.doJSON(cmd.Context(), http.MethodPost, fmt.Sprintf("/v1/databases/%s/query", url.PathEscape(args[0])), payload)
		},
	}
	cmd.Flags().IntVar(&rowLimit, "row-limit", 0, "maximum rows returned (server default when 0)")
	return cmd
}

func newUploadCommand(c *client) *cobra.Command {
	var table, ifExists string
	cmd := &cobra.Command{
		Use:   "upload <db> <file>",
		Short: "Upload a CSV or XLSX file as a table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, contentType, err := multipartBody(args[1], map[string]string{
				"table_name": table,
				"if_exists":  ifExists,
			})
			if err != nil {
				return &requestError{err: err}
			}
			return c.do(cmd.Context(), http.MethodPost, fmt.Sprintf("/v1/databases/%s/uploads", url.PathEscape(args[0])), body, contentType)
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table name (defaults to the file name)")
	cmd.Flags().StringVar(&ifExists, "if-exists", "replace", "replace, append or fail")
	return cmd
}

func multipartBody(path string, fields map[string]string) (io.Reader, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = file.Close() }()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func (c *client) doJSON(ctx context.Context, method, path string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, bytes.NewReader(encoded), "application/json")
}

func (c *client) do(ctx context.Context, method, path string, body io.Reader, contentType string) error {
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &requestError{err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &requestError{err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &requestError{err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode >= 400 {
		return &requestError{err: fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(responseBody)))}
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(c.stdout, pretty)
		return nil
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(c.stdout, string(responseBody))
	}
	return nil
}

func tablePath(databaseID, table string) string {
	return fmt.Sprintf("/v1/databases/%s/tables/%s", url.PathEscape(databaseID), url.PathEscape(table))
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
