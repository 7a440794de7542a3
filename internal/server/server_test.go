package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	auditrepo "github.com/stateline/govcomm/internal/audit/repository"
	auditsvc "github.com/stateline/govcomm/internal/audit/service"
	"github.com/stateline/govcomm/internal/authorization"
	"github.com/stateline/govcomm/internal/clock"
	"github.com/stateline/govcomm/internal/events"
	orgtreerepo "github.com/stateline/govcomm/internal/orgtree/repository"
	orgtreesvc "github.com/stateline/govcomm/internal/orgtree/service"
	"github.com/stateline/govcomm/internal/testdb"
)

type allowAllAuthz struct{}

func (allowAllAuthz) Authorize(ctx context.Context, actor, object, action string) error {
	_ = ctx
	if actor == "" {
		return authorization.ErrInvalidActor
	}
	return nil
}

type denyAllAuthz struct{}

func (denyAllAuthz) Authorize(ctx context.Context, actor, object, action string) error {
	_ = ctx
	if actor == "" {
		return authorization.ErrInvalidActor
	}
	return authorization.ErrForbidden
}

func newStructureTestServer(t *testing.T, authz authorization.Service) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testdb.Open(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	publisher := events.NewOutboxPublisher(db, node)
	srv := &Server{
		engine:     gin.New(),
		db:         db,
		genID:      node,
		authzSvc:   authz,
		orgtreeSvc: orgtreesvc.New(db, orgtreerepo.New(db), node, clock.New(), publisher),
		auditSvc: auditsvc.NewService(auditsvc.Params{
			DB:    db,
			Log:   zap.NewNop(),
			GenID: node,
			Repo:  auditrepo.Provide(),
		}),
	}
	srv.engine.Use(ErrorHandlingMiddleware())
	srv.registerHierarchyRoutes()
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, actor, body string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body == "" {
		buf = bytes.NewBuffer(nil)
	} else {
		buf = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(HeaderActor, actor)
	}
	resp := httptest.NewRecorder()
	srv.engine.ServeHTTP(resp, req)
	return resp
}

func TestStructureRoutesBuildTree(t *testing.T) {
	srv := newStructureTestServer(t, allowAllAuthz{})

	resp := doJSON(t, srv, http.MethodPost, "/hierarchy/structure", "system",
		`{"name":"Правительство","type":"republic"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("create root: status %d body %s", resp.Code, resp.Body.String())
	}
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	rootID := created.Data.ID
	if rootID == "" {
		t.Fatal("expected created unit id")
	}

	resp = doJSON(t, srv, http.MethodPost, "/hierarchy/structure", "system",
		fmt.Sprintf(`{"name":"Министерство финансов","type":"ministry","parent_id":%q}`, rootID))
	if resp.Code != http.StatusOK {
		t.Fatalf("create child: status %d body %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, srv, http.MethodGet, "/hierarchy/structure/tree", "system", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("tree: status %d body %s", resp.Code, resp.Body.String())
	}
	var tree struct {
		Data []struct {
			Unit struct {
				ID string `json:"id"`
			} `json:"unit"`
			Children []struct {
				Unit struct {
					Name string `json:"name"`
				} `json:"unit"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &tree); err != nil {
		t.Fatalf("decode tree: %v", err)
	}
	if len(tree.Data) != 1 || tree.Data[0].Unit.ID != rootID {
		t.Fatalf("expected one root %s, got %+v", rootID, tree.Data)
	}
	if len(tree.Data[0].Children) != 1 || tree.Data[0].Children[0].Unit.Name != "Министерство финансов" {
		t.Fatalf("expected nested ministry, got %+v", tree.Data[0].Children)
	}

	// Deleting a unit with active children needs force.
	resp = doJSON(t, srv, http.MethodDelete, "/hierarchy/structure/"+rootID, "system", "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("delete with children: status %d body %s", resp.Code, resp.Body.String())
	}
	resp = doJSON(t, srv, http.MethodDelete, "/hierarchy/structure/"+rootID+"?force=true", "system", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("force delete: status %d body %s", resp.Code, resp.Body.String())
	}
}

func TestStructureRoutesRejectBadInput(t *testing.T) {
	srv := newStructureTestServer(t, allowAllAuthz{})

	resp := doJSON(t, srv, http.MethodPost, "/hierarchy/structure", "system",
		`{"name":"Бюро","type":"bureau"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unknown type: status %d body %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, srv, http.MethodGet, "/hierarchy/structure/not-a-number", "system", "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status %d body %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, srv, http.MethodGet, "/hierarchy/structure/123456789", "system", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("missing unit: status %d body %s", resp.Code, resp.Body.String())
	}
}

func TestActorIsRequired(t *testing.T) {
	srv := newStructureTestServer(t, allowAllAuthz{})

	resp := doJSON(t, srv, http.MethodGet, "/hierarchy/structure/tree", "", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("missing actor: status %d body %s", resp.Code, resp.Body.String())
	}
}

func TestForbiddenActorGets403(t *testing.T) {
	srv := newStructureTestServer(t, denyAllAuthz{})

	resp := doJSON(t, srv, http.MethodPost, "/hierarchy/structure", "user:42",
		`{"name":"Правительство","type":"republic"}`)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("denied actor: status %d body %s", resp.Code, resp.Body.String())
	}
}
