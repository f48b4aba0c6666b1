package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/souschef/internal/db"
	"github.com/souschef/internal/handler"
	"github.com/souschef/internal/router"
	"github.com/souschef/internal/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 周一送餐日
const deliveryDate = "2024-03-04"

type e2eSuite struct {
	handler   http.Handler
	public    httpClient
	admin     httpClient
	baseURL   string
	reportDir string
	adminPass string

	routeID    uint
	clientIDs  []uint
	mainDishID uint
	ingredient map[string]uint
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(handler http.Handler, withJar bool) *localClient {
	var jar http.CookieJar
	if withJar {
		if j, err := cookiejar.New(nil); err == nil {
			jar = j
		}
	}
	return &localClient{handler: handler, jar: jar}
}

func (c *localClient) Do(req *http.Request) (*http.Response, error) {
	if c.jar != nil {
		for _, cookie := range c.jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	if c.jar != nil {
		c.jar.SetCookies(req.URL, resp.Cookies())
	}
	return resp, nil
}

func TestE2E_DeliveryDay(t *testing.T) {
	suite := newE2ESuite(t)

	t.Run("public endpoints", suite.testPublicEndpoints)
	suite.login(t)
	t.Run("setup", suite.testSetup)
	t.Run("orders", suite.testOrders)
	t.Run("kitchen", suite.testKitchen)
	t.Run("routes", suite.testRoutes)
	t.Run("billing", suite.testBilling)
	t.Run("logout", suite.testLogout)
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open("file:e2e?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	db.DB = gdb
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	if err := db.EnsureUser("admin", "e2e-secret"); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	reportDir := t.TempDir()
	api := handler.NewAPI(gdb, handler.Options{Reports: storage.NewLocalStore(reportDir, nil)})
	engine := router.SetupRouter(api, router.Options{SessionSecret: "test-session-secret"})

	return &e2eSuite{
		handler:    engine,
		public:     newLocalClient(engine, false),
		admin:      newLocalClient(engine, true),
		baseURL:    "http://example.test",
		reportDir:  reportDir,
		adminPass:  "e2e-secret",
		ingredient: map[string]uint{},
	}
}

func (s *e2eSuite) login(t *testing.T) {
	t.Helper()
	resp := s.mustRequestJSON(t, s.admin, http.MethodPost, "/login", map[string]interface{}{
		"username": "admin",
		"password": s.adminPass,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed, status %d", resp.StatusCode)
	}
}

func (s *e2eSuite) testPublicEndpoints(t *testing.T) {
	for path, code := range map[string]int{
		"/ping":        http.StatusOK,
		"/health":      http.StatusOK,
		"/api/clients": http.StatusUnauthorized,
		"/api/orders":  http.StatusUnauthorized,
		"/flashes":     http.StatusUnauthorized,
	} {
		resp := s.mustRequest(t, s.public, http.MethodGet, path, nil, nil)
		resp.Body.Close()
		if resp.StatusCode != code {
			t.Fatalf("%s: expected status %d, got %d", path, code, resp.StatusCode)
		}
	}
}

func (s *e2eSuite) testSetup(t *testing.T) {
	var route struct {
		Route struct {
			ID uint `json:"id"`
		} `json:"route"`
	}
	s.expectJSON(t, http.MethodPost, "/api/routes", map[string]interface{}{"name": "Mile End"}, http.StatusCreated, &route)
	s.routeID = route.Route.ID

	for _, name := range []string{"ginger", "pork", "rice", "flour"} {
		var ing struct {
			Ingredient struct {
				ID uint `json:"id"`
			} `json:"ingredient"`
		}
		s.expectJSON(t, http.MethodPost, "/api/ingredients", map[string]interface{}{"name": name}, http.StatusCreated, &ing)
		s.ingredient[name] = ing.Ingredient.ID
	}

	createComponent := func(name string, group db.ComponentGroup, ingredients ...string) uint {
		ids := make([]uint, 0, len(ingredients))
		for _, name := range ingredients {
			ids = append(ids, s.ingredient[name])
		}
		var comp struct {
			Component struct {
				ID uint `json:"id"`
			} `json:"component"`
		}
		s.expectJSON(t, http.MethodPost, "/api/components", map[string]interface{}{
			"name": name, "group": group, "ingredientIds": ids,
		}, http.StatusCreated, &comp)
		return comp.Component.ID
	}
	s.mainDishID = createComponent("Ginger pork", db.ComponentGroupMainDish, "ginger", "pork")
	createComponent("Sides", db.ComponentGroupSides, "rice")
	createComponent("Brownie", db.ComponentGroupDessert, "flour")

	clients := []struct {
		first, last string
		size        string
		lat         float64
	}{
		{"Marie", "Tremblay", "R", 45.52},
		{"Jean", "Gagnon", "L", 45.53},
	}
	for _, c := range clients {
		var created struct {
			Client struct {
				ID uint `json:"id"`
			} `json:"client"`
		}
		s.expectJSON(t, http.MethodPost, "/api/clients", map[string]interface{}{
			"firstName": c.first, "lastName": c.last, "status": "A",
			"latitude": c.lat, "longitude": -73.6, "routeId": s.routeID,
		}, http.StatusCreated, &created)
		id := created.Client.ID
		s.clientIDs = append(s.clientIDs, id)

		s.expectJSON(t, http.MethodPut, "/api/clients/"+idStr(id)+"/schedule", map[string]interface{}{
			"days": []map[string]interface{}{{
				"weekday": 1, "scheduled": true, "size": c.size,
				"quantities": map[string]int{"main_dish": 1, "dessert": 1},
			}},
		}, http.StatusOK, nil)
	}

	// Gagnon 不吃姜，厨房统计中应出现冲突
	s.expectJSON(t, http.MethodPut, "/api/clients/"+idStr(s.clientIDs[1])+"/dietary", map[string]interface{}{
		"avoidIngredientIds": []uint{s.ingredient["ginger"]},
	}, http.StatusOK, nil)

	var scheduled struct {
		Changes []struct {
			ChangeState string `json:"changeState"`
		} `json:"changes"`
	}
	s.expectJSON(t, http.MethodPost, "/api/scheduled-statuses", map[string]interface{}{
		"clientId": s.clientIDs[0], "statusTo": "S", "reason": "vacances",
		"changeDate": "2099-07-01", "endDate": "2099-07-15",
	}, http.StatusCreated, &scheduled)
	if len(scheduled.Changes) != 2 || scheduled.Changes[1].ChangeState != db.ScheduledStatusEnd {
		t.Fatalf("expected START/END pair, got %+v", scheduled.Changes)
	}

	var note struct {
		Note struct {
			HTML string `json:"html"`
		} `json:"note"`
	}
	s.expectJSON(t, http.MethodPost, "/api/notes", map[string]interface{}{
		"clientId": s.clientIDs[1], "note": "Sonner **deux fois**", "priority": "urgent",
	}, http.StatusCreated, &note)
	if !strings.Contains(note.Note.HTML, "<strong>deux fois</strong>") {
		t.Fatalf("expected rendered note, got %q", note.Note.HTML)
	}
}

func (s *e2eSuite) testOrders(t *testing.T) {
	var generated struct {
		Orders []struct {
			ID    uint   `json:"id"`
			Price string `json:"price"`
		} `json:"orders"`
	}
	s.expectJSON(t, http.MethodPost, "/api/orders/generate", map[string]interface{}{"deliveryDate": deliveryDate}, http.StatusOK, &generated)
	if len(generated.Orders) != 2 {
		t.Fatalf("expected 2 generated orders, got %d", len(generated.Orders))
	}

	var listed struct {
		Orders []struct {
			ID uint `json:"id"`
		} `json:"orders"`
	}
	s.expectJSON(t, http.MethodGet, "/api/orders?deliveryDate="+deliveryDate+"&status=O", nil, http.StatusOK, &listed)
	if len(listed.Orders) != 2 {
		t.Fatalf("expected 2 ordered orders, got %d", len(listed.Orders))
	}

	s.expectJSON(t, http.MethodGet, "/api/orders/"+idStr(listed.Orders[0].ID), nil, http.StatusOK, nil)
}

func (s *e2eSuite) testKitchen(t *testing.T) {
	resp := s.mustRequest(t, s.admin, http.MethodGet, "/api/delivery/kitchen-count?date="+deliveryDate, nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect before ingredients are confirmed, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/delivery/meal?delivery_date="+deliveryDate {
		t.Fatalf("unexpected redirect target %q", loc)
	}

	var flashes struct {
		Messages []string `json:"messages"`
	}
	s.expectJSON(t, http.MethodGet, "/flashes", nil, http.StatusOK, &flashes)
	if len(flashes.Messages) != 1 || !strings.Contains(flashes.Messages[0], "confirm all ingredients") {
		t.Fatalf("expected flash message, got %v", flashes.Messages)
	}

	s.expectJSON(t, http.MethodPost, "/api/delivery/meal", map[string]interface{}{
		"date": deliveryDate, "mainDishId": s.mainDishID,
		"ingredientIds":      []uint{s.ingredient["ginger"], s.ingredient["pork"]},
		"sidesIngredientIds": []uint{s.ingredient["rice"]},
	}, http.StatusOK, nil)

	var count struct {
		ComponentLines []struct {
			Name string `json:"name"`
			RQty int    `json:"rQty"`
			LQty int    `json:"lQty"`
		} `json:"componentLines"`
		MealLines []struct {
			Client    string `json:"client"`
			IngrClash string `json:"ingrClash"`
		} `json:"mealLines"`
		LabelCount int `json:"labelCount"`
	}
	s.expectJSON(t, http.MethodGet, "/api/delivery/kitchen-count?date="+deliveryDate, nil, http.StatusOK, &count)
	if len(count.ComponentLines) == 0 || count.ComponentLines[0].RQty != 1 || count.ComponentLines[0].LQty != 1 {
		t.Fatalf("unexpected main dish line: %+v", count.ComponentLines)
	}
	if count.LabelCount != 2 {
		t.Fatalf("expected 2 labels, got %d", count.LabelCount)
	}
	clash := false
	for _, line := range count.MealLines {
		if strings.Contains(line.IngrClash, "ginger") {
			clash = true
		}
	}
	if !clash {
		t.Fatalf("expected ginger clash in meal lines: %+v", count.MealLines)
	}

	for _, path := range []string{
		"/api/delivery/kitchen-count?format=pdf&date=" + deliveryDate,
		"/api/delivery/labels?date=" + deliveryDate,
	} {
		resp := s.mustRequest(t, s.admin, http.MethodGet, path, nil, nil)
		body := readBody(t, resp)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !strings.HasPrefix(body, "%PDF-") {
			t.Fatalf("%s: expected pdf, got %d", path, resp.StatusCode)
		}
	}
}

func (s *e2eSuite) testRoutes(t *testing.T) {
	route := "/api/routes/" + idStr(s.routeID)

	resp := s.mustRequest(t, s.admin, http.MethodGet, "/api/delivery/route-sheets?date="+deliveryDate, nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 before routes are organized, got %d", resp.StatusCode)
	}

	s.expectJSON(t, http.MethodPost, route+"/organize?date="+deliveryDate, nil, http.StatusOK, nil)

	// 按相反顺序配送
	sequence := []uint{s.clientIDs[1], s.clientIDs[0]}
	s.expectJSON(t, http.MethodPut, route+"/history", map[string]interface{}{
		"date": deliveryDate, "vehicle": "driving", "sequence": sequence,
	}, http.StatusOK, nil)

	var deliveries struct {
		Clients []struct {
			ClientID uint `json:"clientId"`
		} `json:"clients"`
	}
	s.expectJSON(t, http.MethodGet, route+"/history?date="+deliveryDate, nil, http.StatusOK, &deliveries)
	if len(deliveries.Clients) != 2 || deliveries.Clients[0].ClientID != sequence[0] {
		t.Fatalf("expected clients in saved order, got %+v", deliveries.Clients)
	}

	var overview struct {
		AllConfigured bool `json:"allConfigured"`
	}
	s.expectJSON(t, http.MethodGet, "/api/delivery/routes?date="+deliveryDate, nil, http.StatusOK, &overview)
	if !overview.AllConfigured {
		t.Fatalf("expected all routes configured")
	}

	for _, path := range []string{
		route + "/sheet?date=" + deliveryDate,
		"/api/delivery/route-sheets?date=" + deliveryDate,
	} {
		resp := s.mustRequest(t, s.admin, http.MethodGet, path, nil, nil)
		body := readBody(t, resp)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !strings.HasPrefix(body, "%PDF-") {
			t.Fatalf("%s: expected pdf, got %d", path, resp.StatusCode)
		}
	}
}

func (s *e2eSuite) testBilling(t *testing.T) {
	var listed struct {
		Orders []struct {
			ID uint `json:"id"`
		} `json:"orders"`
	}
	s.expectJSON(t, http.MethodGet, "/api/orders?deliveryDate="+deliveryDate, nil, http.StatusOK, &listed)
	ids := make([]uint, 0, len(listed.Orders))
	for _, o := range listed.Orders {
		ids = append(ids, o.ID)
	}
	s.expectJSON(t, http.MethodPatch, "/api/orders/status", map[string]interface{}{"orderIds": ids, "status": "D"}, http.StatusOK, nil)

	var created struct {
		Billing struct {
			ID          uint   `json:"id"`
			TotalAmount string `json:"totalAmount"`
		} `json:"billing"`
	}
	s.expectJSON(t, http.MethodPost, "/api/billings", map[string]interface{}{"year": 2024, "month": 3}, http.StatusCreated, &created)
	if created.Billing.TotalAmount == "0.00" {
		t.Fatalf("expected a non-zero billing total")
	}

	var summary struct {
		Summary struct {
			RegularMainDishes int `json:"regularMainDishes"`
			LargeMainDishes   int `json:"largeMainDishes"`
		} `json:"summary"`
	}
	s.expectJSON(t, http.MethodGet, "/api/billings/"+idStr(created.Billing.ID), nil, http.StatusOK, &summary)
	if summary.Summary.RegularMainDishes != 1 || summary.Summary.LargeMainDishes != 1 {
		t.Fatalf("unexpected billing summary: %+v", summary.Summary)
	}

	resp := s.mustRequest(t, s.admin, http.MethodGet, "/api/billings/"+idStr(created.Billing.ID)+"/export", nil, nil)
	body := readBody(t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export failed: %d", resp.StatusCode)
	}
	// 表头加两位客户各至少一行
	if lines := strings.Count(body, "\r\n"); lines < 3 {
		t.Fatalf("expected invoice rows, got %d lines", lines)
	}
}

func (s *e2eSuite) testLogout(t *testing.T) {
	resp := s.mustRequest(t, s.admin, http.MethodGet, "/logout", nil, nil)
	resp.Body.Close()

	resp = s.mustRequest(t, s.admin, http.MethodGet, "/api/me", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

// expectJSON 以管理员身份请求并校验状态码，dst 非空时解析响应
func (s *e2eSuite) expectJSON(t *testing.T, method, path string, payload map[string]interface{}, code int, dst interface{}) {
	t.Helper()
	var resp *http.Response
	if payload != nil {
		resp = s.mustRequestJSON(t, s.admin, method, path, payload)
	} else {
		resp = s.mustRequest(t, s.admin, method, path, nil, nil)
	}
	defer resp.Body.Close()
	body := readBody(t, resp)
	if resp.StatusCode != code {
		t.Fatalf("%s %s: expected status %d, got %d\nbody=%s", method, path, code, resp.StatusCode, body)
	}
	if dst != nil {
		if err := json.Unmarshal([]byte(body), dst); err != nil {
			t.Fatalf("failed to decode json: %v\nbody=%s", err, body)
		}
	}
}

func (s *e2eSuite) mustRequest(t *testing.T, client httpClient, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.baseURL+path, body)
	if err != nil {
		t.Fatalf("failed to build request %s %s: %v", method, path, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func (s *e2eSuite) mustRequestJSON(t *testing.T, client httpClient, method, path string, payload map[string]interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	return s.mustRequest(t, client, method, path, bytes.NewReader(data), headers)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(data)
}

func idStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
