package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"cardhub/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token string `json:"token"`
}

type cardListResponse struct {
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
	Items  []models.Card `json:"items"`
}

func main() {
	global := flag.NewFlagSet("cardhub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	client := &http.Client{Timeout: 15 * time.Second}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "factions":
		handleFactions(ctx, client, *baseURL, sub, args[2:])
	case "cards":
		handleCards(ctx, client, *baseURL, sub, args[2:])
	case "sets":
		handleSets(ctx, client, *baseURL, sub, args[2:])
	case "bases":
		handleBases(ctx, client, *baseURL, sub, args[2:])
	case "scrape":
		handleScrape(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "feed":
		handleFeed(*baseURL, sub, args[2:])
	case "export":
		handleExport(ctx, client, *baseURL, sub, args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`usage: cardhub [-api URL] [-token PATH] <command> <subcommand> [flags]

commands:
  auth      login | register | logout
  factions  list | show
  cards     list | show
  sets      list | show
  bases     list
  scrape    run | report
  feed      listen | subscribe
  export    json | csv`)
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *username == "" || *email == "" || *password == "" {
			log.Fatal("username, email, and password are required")
		}

		payload := map[string]string{"username": *username, "email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("registered and logged in")
	case "logout":
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("logged out")
	default:
		log.Fatal("usage: cardhub auth <login|register|logout>")
	}
}

func handleFactions(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("factions list", flag.ExitOnError)
		query := fs.String("q", "", "name filter")
		limit := fs.Int("limit", 50, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		u := mustParse(baseURL + "/factions")
		qv := u.Query()
		if *query != "" {
			qv.Set("q", *query)
		}
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("offset", fmt.Sprintf("%d", *offset))
		u.RawQuery = qv.Encode()

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("factions show", flag.ExitOnError)
		name := fs.String("name", "", "faction name")
		_ = fs.Parse(args)
		if *name == "" {
			log.Fatal("faction name is required")
		}

		var resp models.Faction
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/factions/"+url.PathEscape(*name), "", nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: cardhub factions <list|show>")
	}
}

func handleCards(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("cards list", flag.ExitOnError)
		faction := fs.String("faction", "", "faction filter")
		cardType := fs.String("type", "", "card type filter (minion|action)")
		query := fs.String("q", "", "name filter")
		limit := fs.Int("limit", 50, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		u := mustParse(baseURL + "/cards")
		qv := u.Query()
		if *faction != "" {
			qv.Set("faction", *faction)
		}
		if *cardType != "" {
			qv.Set("type", *cardType)
		}
		if *query != "" {
			qv.Set("q", *query)
		}
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("offset", fmt.Sprintf("%d", *offset))
		u.RawQuery = qv.Encode()

		var resp cardListResponse
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("cards show", flag.ExitOnError)
		faction := fs.String("faction", "", "faction name")
		name := fs.String("name", "", "card name")
		_ = fs.Parse(args)
		if *faction == "" || *name == "" {
			log.Fatal("faction and name are required")
		}

		var resp models.Card
		endpoint := baseURL + "/cards/" + url.PathEscape(*faction) + "/" + url.PathEscape(*name)
		if err := doJSON(ctx, client, http.MethodGet, endpoint, "", nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: cardhub cards <list|show>")
	}
}

func handleSets(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "list":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/sets", "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("sets show", flag.ExitOnError)
		name := fs.String("name", "", "set name")
		_ = fs.Parse(args)
		if *name == "" {
			log.Fatal("set name is required")
		}

		var resp models.Set
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/sets/"+url.PathEscape(*name), "", nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: cardhub sets <list|show>")
	}
}

func handleBases(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("bases list", flag.ExitOnError)
		limit := fs.Int("limit", 50, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		u := mustParse(baseURL + "/bases")
		qv := u.Query()
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("offset", fmt.Sprintf("%d", *offset))
		u.RawQuery = qv.Encode()

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: cardhub bases list")
	}
}

func handleScrape(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "run":
		fs := flag.NewFlagSet("scrape run", flag.ExitOnError)
		types := fs.String("types", "", "comma-separated entity types (faction,set,base,card); empty runs all")
		_ = fs.Parse(args)

		var body map[string]any
		if *types != "" {
			body = map[string]any{"types": strings.Split(*types, ",")}
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/scrape", token, body, &resp); err != nil {
			log.Fatalf("scrape run failed: %v", err)
		}
		printJSON(resp)
	case "report":
		var resp models.RunReport
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/scrape/report", token, nil, &resp); err != nil {
			log.Fatalf("scrape report failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: cardhub scrape <run|report>")
	}
}

func handleFeed(baseURL, sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("feed listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP feed server address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			if err := runFeedTCP(*addr, *pretty); err != nil {
				log.Printf("[feed] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	case "subscribe":
		fs := flag.NewFlagSet("feed subscribe", flag.ExitOnError)
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on API host)")
		_ = fs.Parse(args)

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/ws")
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
		}
		if err := runWebSocket(endpoint); err != nil {
			log.Fatalf("subscribe failed: %v", err)
		}
	default:
		log.Fatal("usage: cardhub feed <listen|subscribe>")
	}
}

func handleExport(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "json":
		fs := flag.NewFlagSet("export json", flag.ExitOnError)
		out := fs.String("out", "data/cards.json", "output JSON path")
		limit := fs.Int("limit", 2000, "max cards to export")
		_ = fs.Parse(args)

		items, err := fetchCards(ctx, client, baseURL, *limit)
		if err != nil {
			log.Fatalf("export json failed: %v", err)
		}
		if err := writeJSON(*out, items); err != nil {
			log.Fatalf("write json failed: %v", err)
		}
		log.Printf("exported %d cards to %s", len(items), *out)
	case "csv":
		fs := flag.NewFlagSet("export csv", flag.ExitOnError)
		out := fs.String("out", "data/cards.csv", "output CSV path")
		limit := fs.Int("limit", 2000, "max cards to export")
		_ = fs.Parse(args)

		items, err := fetchCards(ctx, client, baseURL, *limit)
		if err != nil {
			log.Fatalf("export csv failed: %v", err)
		}
		if err := writeCSV(*out, items); err != nil {
			log.Fatalf("write csv failed: %v", err)
		}
		log.Printf("exported %d cards to %s", len(items), *out)
	default:
		log.Fatal("usage: cardhub export <json|csv>")
	}
}

func runFeedTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[feed] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		line := reader.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[feed] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = path
	return u.String(), nil
}

func fetchCards(ctx context.Context, client *http.Client, baseURL string, limit int) ([]models.Card, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	var out []models.Card
	offset := 0
	for len(out) < limit {
		pageSize := 50
		if remaining := limit - len(out); remaining < pageSize {
			pageSize = remaining
		}
		u := mustParse(baseURL + "/cards")
		qv := u.Query()
		qv.Set("limit", fmt.Sprintf("%d", pageSize))
		qv.Set("offset", fmt.Sprintf("%d", offset))
		u.RawQuery = qv.Encode()

		var resp cardListResponse
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			return nil, err
		}
		if len(resp.Items) == 0 {
			break
		}
		out = append(out, resp.Items...)
		offset += len(resp.Items)
		if offset >= resp.Total {
			break
		}
	}

	return out, nil
}

func writeJSON(path string, items []models.Card) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, items []models.Card) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"faction", "name", "type", "power", "effect", "source_url"}); err != nil {
		return err
	}
	for _, item := range items {
		power := ""
		if item.Power != nil {
			power = fmt.Sprintf("%d", *item.Power)
		}
		if err := writer.Write([]string{
			item.FactionName,
			item.Name,
			string(item.Type),
			power,
			item.Effect,
			item.SourceURL,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func mustParse(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		log.Fatalf("invalid url %q: %v", raw, err)
	}
	return u
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.cardhub-token.json"
	}
	return filepath.Join(home, ".cardhub", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(tokenData{Token: token})
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func mustToken(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatal("not logged in; run: cardhub auth login")
	}
	var td tokenData
	if err := json.Unmarshal(b, &td); err != nil || td.Token == "" {
		log.Fatal("token file is invalid; run: cardhub auth login")
	}
	return td.Token
}

func clearToken(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
