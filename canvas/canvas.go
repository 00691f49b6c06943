// Package canvas implements the course and resource sources over the Canvas
// LMS REST API.
package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	autostudent "github.com/jperrello/Auto-Student"
	"golang.org/x/net/html"
)

// ClientOptions configures a Canvas client.
type ClientOptions struct {
	// BaseURL is the institution's Canvas root, e.g.
	// "https://canvas.example.edu".
	BaseURL string
	// AccessToken is the student's Canvas API token.
	AccessToken string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

// Client talks to one Canvas instance on behalf of one student. It implements
// both autostudent.CourseSource and autostudent.ResourceSource.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ autostudent.CourseSource = (*Client)(nil)
var _ autostudent.ResourceSource = (*Client)(nil)

// NewClient creates a Canvas client.
func NewClient(opts ClientOptions) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		token:   opts.AccessToken,
		client:  client,
	}
}

type courseJSON struct {
	ID    int64      `json:"id"`
	Name  string     `json:"name"`
	EndAt *time.Time `json:"end_at"`
}

type assignmentJSON struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	DueAt       *time.Time `json:"due_at"`
	Submission  *struct {
		WorkflowState string `json:"workflow_state"`
	} `json:"submission"`
}

// Courses lists the student's active courses, following Link-header
// pagination to the end.
func (c *Client) Courses(ctx context.Context) ([]autostudent.Course, error) {
	endpoint := c.baseURL + "/api/v1/courses?enrollment_state=active&per_page=50"

	var courses []autostudent.Course
	for endpoint != "" {
		var page []courseJSON
		next, err := c.getJSON(ctx, endpoint, &page)
		if err != nil {
			return nil, fmt.Errorf("list courses: %w", err)
		}
		for _, course := range page {
			if course.Name == "" {
				continue
			}
			courses = append(courses, autostudent.Course{
				ID:    strconv.FormatInt(course.ID, 10),
				Name:  course.Name,
				EndAt: course.EndAt,
			})
		}
		endpoint = next
	}
	return courses, nil
}

// Assignments lists the assignment descriptors for a course. The description
// HTML is reduced to text and its links become classified resources.
func (c *Client) Assignments(ctx context.Context, courseID string) ([]autostudent.Assignment, error) {
	endpoint := fmt.Sprintf("%s/api/v1/courses/%s/assignments?per_page=50&include[]=submission",
		c.baseURL, url.PathEscape(courseID))

	var assignments []autostudent.Assignment
	for endpoint != "" {
		var page []assignmentJSON
		next, err := c.getJSON(ctx, endpoint, &page)
		if err != nil {
			return nil, fmt.Errorf("list assignments for course %s: %w", courseID, err)
		}
		for _, a := range page {
			submitted := a.Submission != nil &&
				(a.Submission.WorkflowState == "submitted" || a.Submission.WorkflowState == "graded")
			assignments = append(assignments, autostudent.Assignment{
				ID:          strconv.FormatInt(a.ID, 10),
				CourseID:    courseID,
				Title:       a.Name,
				Description: autostudent.ExtractTextString(a.Description),
				Resources:   ExtractResources(a.Description),
				DueAt:       a.DueAt,
				Submitted:   submitted,
			})
		}
		endpoint = next
	}
	return assignments, nil
}

// Open retrieves the raw bytes of one linked resource. The API token is only
// attached for URLs on the Canvas host itself. A 401 or 403 wraps
// autostudent.ErrPermissionDenied so the fetcher skips retrying.
func (c *Client) Open(ctx context.Context, res autostudent.LinkedResource) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("open resource %s: %w", res.ID, err)
	}
	if c.sameHost(res.URL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("open resource %s: %w", res.ID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, "", fmt.Errorf("resource %s returned status %d: %w",
			res.ID, resp.StatusCode, autostudent.ErrPermissionDenied)
	case resp.StatusCode != http.StatusOK:
		return nil, "", fmt.Errorf("resource %s returned status %d", res.ID, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read resource %s: %w", res.ID, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) sameHost(rawURL string) bool {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, base.Host)
}

// getJSON issues one authorized GET, decodes the body into out, and returns
// the rel="next" pagination URL if the response carries one.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) (next string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("status %d: %w", resp.StatusCode, autostudent.ErrPermissionDenied)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return nextPageURL(resp.Header.Get("Link")), nil
}

// nextPageURL extracts the rel="next" target from a Canvas Link header.
func nextPageURL(linkHeader string) string {
	for _, part := range strings.Split(linkHeader, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		if !strings.Contains(section[1], `rel="next"`) {
			continue
		}
		target := strings.TrimSpace(section[0])
		return strings.Trim(target, "<>")
	}
	return ""
}

var canvasFileIDPattern = regexp.MustCompile(`/files/(\d+)`)

var documentExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".ppt":  true,
	".pptx": true,
	".rtf":  true,
	".odt":  true,
}

var plainTextExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
}

// ExtractResources pulls the anchor and iframe targets out of assignment
// description HTML and classifies each into a linked resource.
func ExtractResources(descriptionHTML string) []autostudent.LinkedResource {
	root, err := html.Parse(strings.NewReader(descriptionHTML))
	if err != nil {
		return nil
	}

	var resources []autostudent.LinkedResource
	seen := make(map[string]struct{})
	linkN := 0

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			var target, title string
			switch n.Data {
			case "a":
				target = attrValue(n, "href")
				title = nodeText(n)
			case "iframe":
				target = attrValue(n, "src")
				title = attrValue(n, "title")
			}
			if target != "" && !strings.HasPrefix(target, "#") && !strings.HasPrefix(target, "mailto:") {
				if _, dup := seen[target]; !dup {
					seen[target] = struct{}{}
					linkN++
					resources = append(resources, classifyResource(target, title, linkN))
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return resources
}

func classifyResource(target, title string, n int) autostudent.LinkedResource {
	id := fmt.Sprintf("link-%d", n)
	if m := canvasFileIDPattern.FindStringSubmatch(target); m != nil {
		id = "file-" + m[1]
	}

	kind := autostudent.ResourceKindWebpage
	if _, ok := autostudent.ParseVideoID(target); ok {
		kind = autostudent.ResourceKindVideo
	} else if ext := strings.ToLower(pathExtension(target)); ext != "" {
		switch {
		case documentExtensions[ext]:
			kind = autostudent.ResourceKindDocument
		case plainTextExtensions[ext]:
			kind = autostudent.ResourceKindPlainText
		}
	}
	if m := canvasFileIDPattern.FindStringSubmatch(target); m != nil && kind == autostudent.ResourceKindWebpage {
		// Canvas file downloads without a telling extension are still
		// documents, not pages.
		kind = autostudent.ResourceKindDocument
	}

	return autostudent.LinkedResource{
		ID:    id,
		URL:   target,
		Kind:  kind,
		Title: strings.TrimSpace(title),
	}
}

func pathExtension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := u.Path
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i:]
	}
	return ""
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
