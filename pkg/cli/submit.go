package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aiarchives/aiarchives/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func submitCommand() *cli.Command {
	var (
		cfg       config
		serverURL string
		modelName string
		timeout   time.Duration
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "server",
			Aliases:     []string{"s"},
			Usage:       "Base URL of the archive server",
			Value:       "http://localhost:8080",
			Sources:     cli.EnvVars("AIARCHIVES_SERVER"),
			Destination: &serverURL,
		},
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "Model name of the conversation (e.g. ChatGPT, Claude, Gemini)",
			Destination: &modelName,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "HTTP timeout",
			Value:       30 * time.Second,
			Destination: &timeout,
		},
	}
	flags = append(flags, loggingFlags(&cfg)...)

	return &cli.Command{
		Name:      "submit",
		Usage:     "Upload a saved share page and print its permalink",
		ArgsUsage: "<file.html | ->",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.setupLogger(); err != nil {
				return err
			}

			path := c.Args().First()
			if path == "" {
				return goerr.New("html file path is required (use - for stdin)")
			}

			html, err := readInput(path)
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: timeout}
			permalink, err := submitConversation(ctx, client, serverURL, modelName, filepath.Base(path), html)
			if err != nil {
				return err
			}

			logging.Default().Debug("conversation submitted", "bytes", len(html), "url", permalink)
			fmt.Println(permalink)
			return nil
		},
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read stdin")
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read html file", goerr.V("path", path))
	}
	return data, nil
}

// submitConversation posts html as the htmlDoc part of a multipart form, the
// same request the browser extension makes, and returns the permalink
func submitConversation(ctx context.Context, client *http.Client, serverURL, modelName, filename string, html []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if filename == "" || filename == "-" || filename == "." {
		filename = "page.html"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="htmlDoc"; filename="`+escapeQuotes(filename)+`"`)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create multipart part")
	}
	if _, err := part.Write(html); err != nil {
		return "", goerr.Wrap(err, "failed to write multipart part")
	}

	if modelName != "" {
		if err := mw.WriteField("model", modelName); err != nil {
			return "", goerr.Wrap(err, "failed to write model field")
		}
	}
	if err := mw.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to close multipart writer")
	}

	endpoint := strings.TrimRight(serverURL, "/") + "/api/conversation"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create request", goerr.V("endpoint", endpoint))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "failed to submit conversation", goerr.V("endpoint", endpoint))
	}
	defer resp.Body.Close()

	var result struct {
		URL   string `json:"url"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", goerr.Wrap(err, "failed to decode response", goerr.V("status", resp.StatusCode))
	}

	if resp.StatusCode != http.StatusCreated {
		return "", goerr.New("submission rejected: "+result.Error,
			goerr.V("status", resp.StatusCode), goerr.V("endpoint", endpoint))
	}
	if result.URL == "" {
		return "", goerr.New("response has no url", goerr.V("status", resp.StatusCode))
	}

	return result.URL, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
