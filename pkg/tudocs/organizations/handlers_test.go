package organizations

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tudocs/tudocs/pkg/tudocs/auth"
	"github.com/tudocs/tudocs/pkg/tudocs/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	hash, _ := auth.HashPassword("password123")
	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         "Test User",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func createTestOrg(t *testing.T, db *gorm.DB, name, slug string, owner models.User) models.Organization {
	org := models.Organization{Name: name, Slug: slug}
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("Failed to create test org: %v", err)
	}
	membership := models.OrganizationMembership{
		OrganizationID: org.ID,
		UserID:         owner.ID,
		Role:           models.RoleOwner,
	}
	if err := db.Create(&membership).Error; err != nil {
		t.Fatalf("Failed to create owner membership: %v", err)
	}
	return org
}

func addMember(t *testing.T, db *gorm.DB, org models.Organization, user models.User, role models.Role) {
	membership := models.OrganizationMembership{
		OrganizationID: org.ID,
		UserID:         user.ID,
		Role:           role,
	}
	if err := db.Create(&membership).Error; err != nil {
		t.Fatalf("Failed to add member: %v", err)
	}
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db)

	protected := r.Group("", auth.AuthMiddleware())
	orgs := protected.Group("/organizations")
	handler.RegisterRoutes(orgs)
	handler.RegisterMemberRoutes(orgs)
	handler.RegisterInvitationRoutes(orgs)
	handler.RegisterAcceptRoute(protected)

	return r
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Email)
	return "Bearer " + token
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, user models.User) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		buf = bytes.NewBuffer(jsonBody)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestCreateOrganization(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "test@example.com")

	resp := doJSON(t, router, "POST", "/organizations", CreateOrgRequest{Name: "Acme Corp", Slug: "acme"}, user)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response OrgResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.Name != "Acme Corp" {
		t.Errorf("Expected name 'Acme Corp', got %s", response.Name)
	}
	if response.Slug != "acme" {
		t.Errorf("Expected slug 'acme', got %s", response.Slug)
	}
	if response.Role != "owner" {
		t.Errorf("Expected role 'owner', got %s", response.Role)
	}
	if response.Plan != "free" {
		t.Errorf("Expected plan 'free', got %s", response.Plan)
	}

	// Creation must bootstrap exactly one owner membership
	var count int64
	db.Model(&models.OrganizationMembership{}).Where("organization_id = ? AND user_id = ? AND role = ?", response.ID, user.ID, models.RoleOwner).Count(&count)
	if count != 1 {
		t.Errorf("Expected one owner membership, got %d", count)
	}
}

func TestCreateOrganizationDerivesSlugFromName(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "test@example.com")

	resp := doJSON(t, router, "POST", "/organizations", CreateOrgRequest{Name: "Acme Corp"}, user)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response OrgResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Slug != "acme-corp" {
		t.Errorf("Expected derived slug 'acme-corp', got %s", response.Slug)
	}
}

func TestCreateOrganizationSlugConflict(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "test@example.com")

	// Two different names that slugify to the same value
	first := doJSON(t, router, "POST", "/organizations", CreateOrgRequest{Name: "Acme Corp"}, user)
	if first.Code != http.StatusCreated {
		t.Fatalf("Expected first create to succeed, got %d", first.Code)
	}

	second := doJSON(t, router, "POST", "/organizations", CreateOrgRequest{Name: "ACME CORP"}, user)
	if second.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d: %s", second.Code, second.Body.String())
	}

	var count int64
	db.Model(&models.Organization{}).Where("slug = ?", "acme-corp").Count(&count)
	if count != 1 {
		t.Errorf("Expected one organization with the slug, got %d", count)
	}
}

func TestListOrganizations(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "test@example.com")
	createTestOrg(t, db, "Test Org", "test-org", user)

	// An org the user is not a member of must not show up
	other := createTestUser(t, db, "other@example.com")
	createTestOrg(t, db, "Other Org", "other-org", other)

	resp := doJSON(t, router, "GET", "/organizations", nil, user)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var orgs []OrgResponse
	json.Unmarshal(resp.Body.Bytes(), &orgs)

	if len(orgs) != 1 {
		t.Fatalf("Expected 1 organization, got %d", len(orgs))
	}
	if orgs[0].Slug != "test-org" {
		t.Errorf("Expected slug 'test-org', got %s", orgs[0].Slug)
	}
	if orgs[0].Role != "owner" {
		t.Errorf("Expected role 'owner', got %s", orgs[0].Role)
	}
}

func TestGetOrganization(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "test@example.com")
	org := createTestOrg(t, db, "Test Org", "test-org", user)

	resp := doJSON(t, router, "GET", "/organizations/"+itoa(org.ID), nil, user)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response OrgResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.ID != org.ID {
		t.Errorf("Expected org %d, got %d", org.ID, response.ID)
	}
	if response.MemberCount != 1 {
		t.Errorf("Expected member count 1, got %d", response.MemberCount)
	}
}

func TestGetOrganizationRequiresMembership(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	owner := createTestUser(t, db, "owner@example.com")
	org := createTestOrg(t, db, "Test Org", "test-org", owner)
	outsider := createTestUser(t, db, "outsider@example.com")

	resp := doJSON(t, router, "GET", "/organizations/"+itoa(org.ID), nil, outsider)

	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
	if bytes.Contains(resp.Body.Bytes(), []byte("test-org")) {
		t.Error("Response must not leak organization data to non-members")
	}
}

func TestUpdateOrganizationPartial(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "test@example.com")
	org := createTestOrg(t, db, "Test Org", "test-org", user)
	db.Model(&org).Updates(map[string]interface{}{"logo": "https://example.com/logo.png", "custom_domain": "docs.example.com"})

	name := "Renamed Org"
	empty := ""
	resp := doJSON(t, router, "PATCH", "/organizations/"+itoa(org.ID), UpdateOrgRequest{Name: &name, CustomDomain: &empty}, user)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var updated models.Organization
	db.First(&updated, org.ID)
	if updated.Name != "Renamed Org" {
		t.Errorf("Expected name updated, got %s", updated.Name)
	}
	// Absent field untouched
	if updated.Logo != "https://example.com/logo.png" {
		t.Errorf("Expected logo untouched, got %s", updated.Logo)
	}
	// Explicitly supplied empty string clears the field
	if updated.CustomDomain != "" {
		t.Errorf("Expected custom domain cleared, got %s", updated.CustomDomain)
	}
	if !updated.UpdatedAt.After(org.UpdatedAt) {
		t.Error("Expected UpdatedAt to be refreshed")
	}
}

func TestUpdateOrganizationRejectsEmptyName(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "test@example.com")
	org := createTestOrg(t, db, "Test Org", "test-org", user)

	empty := ""
	resp := doJSON(t, router, "PATCH", "/organizations/"+itoa(org.ID), UpdateOrgRequest{Name: &empty}, user)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestUpdateOrganizationRequiresManageSettings(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	owner := createTestUser(t, db, "owner@example.com")
	org := createTestOrg(t, db, "Test Org", "test-org", owner)
	editor := createTestUser(t, db, "editor@example.com")
	addMember(t, db, org, editor, models.RoleEditor)

	name := "Hijacked"
	resp := doJSON(t, router, "PATCH", "/organizations/"+itoa(org.ID), UpdateOrgRequest{Name: &name}, editor)

	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}

	var unchanged models.Organization
	db.First(&unchanged, org.ID)
	if unchanged.Name != "Test Org" {
		t.Errorf("Organization should be unchanged, got name %s", unchanged.Name)
	}
}

func TestDeleteOrganizationRequiresOwner(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	owner := createTestUser(t, db, "owner@example.com")
	org := createTestOrg(t, db, "Test Org", "test-org", owner)
	admin := createTestUser(t, db, "admin@example.com")
	addMember(t, db, org, admin, models.RoleAdmin)

	resp := doJSON(t, router, "DELETE", "/organizations/"+itoa(org.ID), nil, admin)

	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}

	var count int64
	db.Model(&models.Organization{}).Where("id = ?", org.ID).Count(&count)
	if count != 1 {
		t.Error("Organization should still exist")
	}
}

func TestDeleteOrganizationCascades(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	owner := createTestUser(t, db, "owner@example.com")
	org := createTestOrg(t, db, "Test Org", "test-org", owner)
	editor := createTestUser(t, db, "editor@example.com")
	addMember(t, db, org, editor, models.RoleEditor)

	doc := models.Document{OrganizationID: org.ID, Title: "Doc", Slug: "doc", CreatedByID: owner.ID}
	db.Create(&doc)
	inv := models.Invitation{OrganizationID: org.ID, Email: "new@example.com", Role: models.RoleViewer, Token: "tok-cascade", ExpiresAt: org.CreatedAt.AddDate(0, 0, 7), CreatedByID: owner.ID}
	db.Create(&inv)

	resp := doJSON(t, router, "DELETE", "/organizations/"+itoa(org.ID), nil, owner)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var memberships, docs, invitations int64
	db.Model(&models.OrganizationMembership{}).Where("organization_id = ?", org.ID).Count(&memberships)
	db.Model(&models.Document{}).Where("organization_id = ?", org.ID).Count(&docs)
	db.Model(&models.Invitation{}).Where("organization_id = ?", org.ID).Count(&invitations)

	if memberships != 0 {
		t.Errorf("Expected 0 memberships after delete, got %d", memberships)
	}
	if docs != 0 {
		t.Errorf("Expected 0 documents after delete, got %d", docs)
	}
	if invitations != 0 {
		t.Errorf("Expected 0 invitations after delete, got %d", invitations)
	}
}

func TestDeleteOrganizationFreesSlug(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "test@example.com")
	org := createTestOrg(t, db, "Test Org", "test-org", user)

	resp := doJSON(t, router, "DELETE", "/organizations/"+itoa(org.ID), nil, user)
	if resp.Code != http.StatusOK {
		t.Fatalf("Delete failed: %d %s", resp.Code, resp.Body.String())
	}

	recreate := doJSON(t, router, "POST", "/organizations", CreateOrgRequest{Name: "Test Org", Slug: "test-org"}, user)
	if recreate.Code != http.StatusCreated {
		t.Errorf("Expected status 201 reusing a deleted org's slug, got %d: %s", recreate.Code, recreate.Body.String())
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
