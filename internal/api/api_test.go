package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/erazemk/loadout/internal/auth"
	"github.com/erazemk/loadout/internal/db"
	"github.com/erazemk/loadout/internal/model"
	"github.com/erazemk/loadout/internal/store"
	"github.com/erazemk/loadout/internal/transfer"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	server, token, _ := setupTestServerWith(t, Options{})
	return server, token
}

func setupTestServerWith(t *testing.T, opts Options) (*httptest.Server, string, *model.User) {
	t.Helper()
	database := db.NewTestDB(t)
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	router := NewRouter(database, testJWTSecret, opts)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create admin user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	admin, err := store.CreateUser(ctx, database, "admin", string(hash), model.RoleAdmin)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// Get token.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp loginResponse
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}

	return server, loginResp.Token, admin
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// call sends an authenticated JSON request and decodes the response into
// out when out is non-nil.
func call(t *testing.T, method, url, token string, body, out any) int {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func createItem(t *testing.T, server *httptest.Server, token, name string, quantity int) model.Item {
	t.Helper()
	var item model.Item
	status := call(t, "POST", server.URL+"/api/items", token, map[string]any{
		"name": name, "category": "Traffic", "quantity": quantity,
	}, &item)
	if status != http.StatusCreated {
		t.Fatalf("creating item: expected 201, got %d", status)
	}
	return item
}

func createList(t *testing.T, server *httptest.Server, token, date, returnDate string) model.LoadingList {
	t.Helper()
	var l model.LoadingList
	status := call(t, "POST", server.URL+"/api/loading_lists", token, map[string]any{
		"site_name": "Harbour", "date": date, "return_date": returnDate,
	}, &l)
	if status != http.StatusCreated {
		t.Fatalf("creating list: expected 201, got %d", status)
	}
	return l
}

func getItem(t *testing.T, server *httptest.Server, token string, id int64) model.Item {
	t.Helper()
	var item model.Item
	if status := call(t, "GET", server.URL+"/api/items/"+itoa(id), token, nil, &item); status != http.StatusOK {
		t.Fatalf("getting item: expected 200, got %d", status)
	}
	return item
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	// Test invalid credentials.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server, token := setupTestServer(t)

	if status := call(t, "POST", server.URL+"/api/auth/logout", token, nil, nil); status != http.StatusOK {
		t.Fatalf("expected 200 from logout, got %d", status)
	}
	if status := call(t, "GET", server.URL+"/api/items", token, nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 with revoked token, got %d", status)
	}
}

func TestItemsAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)

	item := createItem(t, server, token, "Barrier", 5)
	if item.Quantity != 5 {
		t.Errorf("expected initial quantity 5, got %d", item.Quantity)
	}

	var adjusted model.Item
	status := call(t, "POST", server.URL+"/api/items/"+itoa(item.ID)+"/stock", token,
		map[string]any{"delta": 3, "notes": "delivery"}, &adjusted)
	if status != http.StatusOK || adjusted.Quantity != 8 {
		t.Errorf("expected 200 and quantity 8, got %d and %d", status, adjusted.Quantity)
	}

	var errResp errorResponse
	status = call(t, "POST", server.URL+"/api/items/"+itoa(item.ID)+"/stock", token,
		map[string]any{"delta": -20}, &errResp)
	if status != http.StatusConflict || errResp.Error != "insufficient stock" {
		t.Errorf("expected 409 insufficient stock, got %d %q", status, errResp.Error)
	}

	status = call(t, "POST", server.URL+"/api/items/"+itoa(item.ID)+"/stock", token,
		map[string]any{"delta": 0}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for zero delta, got %d", status)
	}

	var history []model.Movement
	call(t, "GET", server.URL+"/api/items/"+itoa(item.ID)+"/history", token, nil, &history)
	if len(history) != 2 || history[0].Notes != "delivery" || history[1].Notes != "initial stock" {
		t.Errorf("unexpected history %+v", history)
	}

	var items []model.Item
	call(t, "GET", server.URL+"/api/items?category=Traffic", token, nil, &items)
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}

	var categories []string
	call(t, "GET", server.URL+"/api/categories", token, nil, &categories)
	if len(categories) != 1 || categories[0] != "Traffic" {
		t.Errorf("unexpected categories %v", categories)
	}

	if status := call(t, "GET", server.URL+"/api/items/999", token, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 for missing item, got %d", status)
	}
}

func TestListEditorGestures(t *testing.T) {
	server, token := setupTestServer(t)

	item := createItem(t, server, token, "Barrier", 5)
	l := createList(t, server, token, "2024-06-01", "2024-06-02")
	itemsURL := server.URL + "/api/loading_lists/" + itoa(l.ID) + "/items"

	var res transfer.Result
	status := call(t, "POST", itemsURL, token, map[string]any{"item_id": item.ID, "quantity": 2}, &res)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if res.Change.State != transfer.StateConfirmed || res.Allocation == nil || res.Item.Quantity != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	allocURL := server.URL + "/api/loading_list_items/" + itoa(res.Allocation.ID)

	var errResp errorResponse
	status = call(t, "POST", itemsURL, token, map[string]any{"item_id": item.ID}, &errResp)
	if status != http.StatusConflict || errResp.Error != "item already on list" {
		t.Errorf("expected 409 item already on list, got %d %q", status, errResp.Error)
	}
	if errResp.Change == nil || errResp.Change.State != transfer.StateRolledBack {
		t.Errorf("expected rolled back change in error, got %+v", errResp.Change)
	}

	status = call(t, "POST", allocURL+"/increment", token, map[string]any{"by": 10}, &errResp)
	if status != http.StatusConflict || errResp.Error != "insufficient stock" {
		t.Errorf("expected 409 insufficient stock, got %d %q", status, errResp.Error)
	}

	// Empty body steps by one.
	res = transfer.Result{}
	if status := call(t, "POST", allocURL+"/increment", token, nil, &res); status != http.StatusOK {
		t.Fatalf("expected 200 from increment, got %d", status)
	}
	if res.Allocation.Quantity != 3 || res.Item.Quantity != 2 {
		t.Errorf("expected allocation 3 and pool 2, got %+v %+v", res.Allocation, res.Item)
	}

	res = transfer.Result{}
	call(t, "PATCH", allocURL, token, map[string]any{"loaded": true}, &res)
	if res.Allocation == nil || !res.Allocation.Loaded {
		t.Errorf("expected loaded allocation, got %+v", res.Allocation)
	}
	if status := call(t, "PATCH", allocURL, token, map[string]any{}, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 without loaded, got %d", status)
	}

	res = transfer.Result{}
	call(t, "POST", allocURL+"/decrement", token, map[string]any{"by": 1}, &res)
	if res.Allocation.Quantity != 2 || res.Item.Quantity != 3 {
		t.Errorf("expected allocation 2 and pool 3, got %+v %+v", res.Allocation, res.Item)
	}

	res = transfer.Result{}
	if status := call(t, "DELETE", allocURL, token, nil, &res); status != http.StatusOK {
		t.Fatalf("expected 200 from drag to pool, got %d", status)
	}
	if res.Item.Quantity != 5 {
		t.Errorf("expected pool back to 5, got %d", res.Item.Quantity)
	}

	res = transfer.Result{}
	call(t, "DELETE", allocURL, token, nil, &res)
	if res.Change.State != transfer.StateSatisfied {
		t.Errorf("expected satisfied on second removal, got %s", res.Change.State)
	}

	var pending []transfer.Change
	call(t, "GET", server.URL+"/api/changes/pending", token, nil, &pending)
	if len(pending) != 0 {
		t.Errorf("expected no pending changes, got %d", len(pending))
	}
}

func TestAvailabilityAndBoard(t *testing.T) {
	server, token := setupTestServer(t)

	item := createItem(t, server, token, "Barrier", 5)
	today := createList(t, server, token, "2024-06-10", "2024-06-10")
	createList(t, server, token, "2024-06-11", "2024-06-12")
	createList(t, server, token, "2024-06-05", "2024-06-06")
	createList(t, server, token, "2024-05-01", "2024-05-02")

	call(t, "POST", server.URL+"/api/loading_lists/"+itoa(today.ID)+"/items", token,
		map[string]any{"item_id": item.ID, "quantity": 4}, nil)

	var a model.Availability
	status := call(t, "GET", server.URL+"/api/items/"+itoa(item.ID)+"/availability?date=2024-06-10", token, nil, &a)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if a.Pool != 1 || a.ReturningToday != 4 || a.Available != 5 {
		t.Errorf("unexpected availability %+v", a)
	}

	var all []model.Availability
	call(t, "GET", server.URL+"/api/availability?date=2024-06-11", token, nil, &all)
	if len(all) != 1 || all[0].ReturningToday != 0 || all[0].Available != 1 {
		t.Errorf("unexpected availability list %+v", all)
	}

	if status := call(t, "GET", server.URL+"/api/availability?date=June", token, nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", status)
	}

	var board struct {
		Previous []model.LoadingList `json:"previous"`
		Today    []model.LoadingList `json:"today_lists"`
		Tomorrow []model.LoadingList `json:"tomorrow"`
	}
	call(t, "GET", server.URL+"/api/board?date=2024-06-10", token, nil, &board)
	if len(board.Today) != 1 || len(board.Tomorrow) != 1 || len(board.Previous) != 1 {
		t.Errorf("unexpected board today=%d tomorrow=%d previous=%d",
			len(board.Today), len(board.Tomorrow), len(board.Previous))
	}
}

func TestCopyAndDeleteList(t *testing.T) {
	server, token := setupTestServer(t)

	item := createItem(t, server, token, "Barrier", 5)
	l := createList(t, server, token, "2024-06-01", "2024-06-02")
	listURL := server.URL + "/api/loading_lists/" + itoa(l.ID)
	call(t, "POST", listURL+"/items", token, map[string]any{"item_id": item.ID, "quantity": 2}, nil)

	var res transfer.Result
	status := call(t, "POST", listURL+"/copy", token,
		map[string]any{"date": "2024-06-08", "return_date": "2024-06-09"}, &res)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 from copy, got %d", status)
	}
	if res.List == nil || res.List.SiteName != "Harbour" || len(res.List.Allocations) != 1 {
		t.Fatalf("unexpected copied list %+v", res.List)
	}
	if got := getItem(t, server, token, item.ID); got.Quantity != 1 {
		t.Errorf("expected pool 1 after copy, got %d", got.Quantity)
	}

	var errResp errorResponse
	status = call(t, "POST", listURL+"/copy", token,
		map[string]any{"date": "2024-06-15", "return_date": "2024-06-16"}, &errResp)
	if status != http.StatusConflict || !strings.Contains(errResp.Detail, "Barrier") {
		t.Errorf("expected 409 naming the item, got %d %+v", status, errResp)
	}

	res = transfer.Result{}
	if status := call(t, "DELETE", listURL, token, nil, &res); status != http.StatusOK {
		t.Fatalf("expected 200 from delete, got %d", status)
	}
	if res.Destroyed == nil || len(res.Destroyed.WrittenOff) != 1 {
		t.Errorf("expected one written-off allocation, got %+v", res.Destroyed)
	}
	if status := call(t, "GET", listURL, token, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", status)
	}

	var lists []model.LoadingList
	call(t, "GET", server.URL+"/api/loading_lists?from=2024-06-01", token, nil, &lists)
	if len(lists) != 1 {
		t.Errorf("expected only the copy to remain, got %d lists", len(lists))
	}
}

func TestListValidation(t *testing.T) {
	server, token := setupTestServer(t)

	status := call(t, "POST", server.URL+"/api/loading_lists", token, map[string]any{
		"site_name": "Harbour", "date": "2024-06-02", "return_date": "2024-06-01",
	}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for return before delivery, got %d", status)
	}

	status = call(t, "POST", server.URL+"/api/loading_lists/999/items", token,
		map[string]any{"item_id": 1}, nil)
	if status != http.StatusNotFound {
		t.Errorf("expected 404 for missing list, got %d", status)
	}
}

type fakePrinter struct {
	html []byte
}

func (p *fakePrinter) PrintPDF(_ context.Context, html []byte) ([]byte, error) {
	p.html = html
	return []byte("%PDF-1.4 fake"), nil
}

type fakeArchiver struct {
	names []string
}

func (a *fakeArchiver) Archive(_ context.Context, name string, _ []byte) (string, error) {
	a.names = append(a.names, name)
	return "https://files.example.com/" + name, nil
}

func TestLoadingSheet(t *testing.T) {
	printer := &fakePrinter{}
	archiver := &fakeArchiver{}
	server, token, _ := setupTestServerWith(t, Options{Printer: printer, Archiver: archiver})

	item := createItem(t, server, token, "Barrier", 5)
	l := createList(t, server, token, "2024-06-01", "2024-06-02")
	listURL := server.URL + "/api/loading_lists/" + itoa(l.ID)
	call(t, "POST", listURL+"/items", token, map[string]any{"item_id": item.ID, "quantity": 2}, nil)

	req, _ := authRequest("GET", listURL+"/sheet", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	html, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(html), "Barrier") {
		t.Errorf("expected sheet with item, got %d", resp.StatusCode)
	}

	req, _ = authRequest("GET", listURL+"/sheet.pdf", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	pdf, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/pdf" {
		t.Fatalf("expected pdf, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) || !strings.Contains(string(printer.html), "Harbour") {
		t.Error("expected printer output for the rendered sheet")
	}
	if len(archiver.names) != 1 || resp.Header.Get("X-Archive-Location") == "" {
		t.Errorf("expected one archived sheet, got %v", archiver.names)
	}
}

func TestLoadingSheetPDFWithoutPrinter(t *testing.T) {
	server, token := setupTestServer(t)
	l := createList(t, server, token, "2024-06-01", "2024-06-02")

	status := call(t, "GET", server.URL+"/api/loading_lists/"+itoa(l.ID)+"/sheet.pdf", token, nil, nil)
	if status != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without printer, got %d", status)
	}
}

func TestItemImageUpload(t *testing.T) {
	server, token := setupTestServer(t)
	item := createItem(t, server, token, "Barrier", 1)

	img := image.NewRGBA(image.Rect(0, 0, 1000, 500))
	for x := 0; x < 1000; x++ {
		img.Set(x, 250, color.RGBA{R: 255, A: 255})
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("image", "barrier.png")
	png.Encode(fw, img)
	mw.Close()

	imageURL := server.URL + "/api/items/" + itoa(item.ID) + "/image"
	req, _ := http.NewRequest("PUT", imageURL, &body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	var uploaded struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	json.NewDecoder(resp.Body).Decode(&uploaded)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if uploaded.Width != 800 || uploaded.Height != 400 {
		t.Errorf("expected 800x400, got %dx%d", uploaded.Width, uploaded.Height)
	}

	req, _ = authRequest("GET", imageURL, token, nil)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/jpeg" {
		t.Errorf("expected jpeg image, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret, Options{})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	resp, _ := http.Get(server.URL + "/api/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret, Options{})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create a regular user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.DefaultCost)
	user, _ := store.CreateUser(ctx, database, "user1", string(hash), model.RoleUser)

	userToken, _, err := auth.GenerateToken(testJWTSecret, user, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	// Regular user should not be able to create items (manager+ required).
	req, _ := authRequest("POST", server.URL+"/api/items", userToken, map[string]string{
		"name": "Test",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for user creating item, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Regular user should not access /api/users.
	req, _ = authRequest("GET", server.URL+"/api/users", userToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for user accessing users, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Regular users edit loading lists.
	req, _ = authRequest("POST", server.URL+"/api/loading_lists", userToken, map[string]string{
		"site_name": "Quay", "date": "2024-06-01", "return_date": "2024-06-01",
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201 for user creating list, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUserManagement(t *testing.T) {
	server, token, admin := setupTestServerWith(t, Options{})

	var created model.User
	status := call(t, "POST", server.URL+"/api/users", token, map[string]string{
		"username": "jana", "password": "longenough", "role": model.RoleManager,
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}

	status = call(t, "POST", server.URL+"/api/users", token, map[string]string{
		"username": "jana", "password": "longenough", "role": model.RoleUser,
	}, nil)
	if status != http.StatusConflict {
		t.Errorf("expected 409 for duplicate username, got %d", status)
	}

	status = call(t, "POST", server.URL+"/api/users", token, map[string]string{
		"username": "short", "password": "abc", "role": model.RoleUser,
	}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for short password, got %d", status)
	}

	var updated model.User
	status = call(t, "PUT", server.URL+"/api/users/"+itoa(created.ID), token, map[string]string{"role": model.RoleUser}, &updated)
	if status != http.StatusOK || updated.Role != model.RoleUser || updated.Username != "jana" {
		t.Errorf("expected 200 with updated user, got %d %+v", status, updated)
	}
	if status := call(t, "PUT", server.URL+"/api/users/999", token, map[string]string{"role": model.RoleUser}, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 updating unknown user, got %d", status)
	}

	if status := call(t, "DELETE", server.URL+"/api/users/"+itoa(admin.ID), token, nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 deleting yourself, got %d", status)
	}
	if status := call(t, "DELETE", server.URL+"/api/users/"+itoa(created.ID), token, nil, nil); status != http.StatusOK {
		t.Errorf("expected 200 deleting user, got %d", status)
	}
	if status := call(t, "DELETE", server.URL+"/api/users/"+itoa(created.ID), token, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 deleting deleted user, got %d", status)
	}
	if status := call(t, "PUT", server.URL+"/api/users/"+itoa(created.ID), token, map[string]string{"role": model.RoleManager}, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 updating deleted user, got %d", status)
	}
}

func TestTeams(t *testing.T) {
	server, token := setupTestServer(t)

	var team model.Team
	if status := call(t, "POST", server.URL+"/api/teams", token, map[string]string{"name": "Crew A"}, &team); status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if status := call(t, "POST", server.URL+"/api/teams", token, map[string]string{"name": "Crew A"}, nil); status != http.StatusConflict {
		t.Errorf("expected 409 for duplicate team, got %d", status)
	}

	var teams []model.Team
	call(t, "GET", server.URL+"/api/teams", token, nil, &teams)
	if len(teams) != 1 {
		t.Errorf("expected 1 team, got %d", len(teams))
	}

	status := call(t, "POST", server.URL+"/api/loading_lists", token, map[string]any{
		"site_name": "Harbour", "date": "2024-06-01", "return_date": "2024-06-01", "team_id": 999,
	}, nil)
	if status != http.StatusNotFound {
		t.Errorf("expected 404 for unknown team, got %d", status)
	}
}
