package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/gearstage-backend/internal/categories"
	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
)

type stubCategoryService struct {
	created categories.CreateInput
	updated categories.UpdateInput
	deleted uuid.UUID
	err     error
}

func (s *stubCategoryService) List(context.Context) ([]categories.CategoryDTO, error) {
	return []categories.CategoryDTO{{ID: uuid.New(), Name: "Audio", Color: "#7b1fa2"}}, s.err
}

func (s *stubCategoryService) Create(_ context.Context, input categories.CreateInput) (*categories.CategoryDTO, error) {
	s.created = input
	if s.err != nil {
		return nil, s.err
	}
	return &categories.CategoryDTO{ID: uuid.New(), Name: input.Name, Color: input.Color}, nil
}

func (s *stubCategoryService) Update(_ context.Context, id uuid.UUID, input categories.UpdateInput) (*categories.CategoryDTO, error) {
	s.updated = input
	if s.err != nil {
		return nil, s.err
	}
	return &categories.CategoryDTO{ID: id}, nil
}

func (s *stubCategoryService) Delete(_ context.Context, id uuid.UUID) error {
	s.deleted = id
	return s.err
}

func TestCategoryList(t *testing.T) {
	rec := httptest.NewRecorder()
	CategoryList(&stubCategoryService{}, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/categories", "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var body []categories.CategoryDTO
	decodeData(t, rec, &body)
	if len(body) != 1 || body[0].Name != "Audio" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestCategoryCreate(t *testing.T) {
	svc := &stubCategoryService{}
	rec := httptest.NewRecorder()
	CategoryCreate(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/categories", `{"name":"Lighting","color":"#00ff00","position":2}`, nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.created.Name != "Lighting" || svc.created.Color != "#00ff00" || svc.created.Position == nil || *svc.created.Position != 2 {
		t.Fatalf("unexpected input %+v", svc.created)
	}
}

func TestCategoryCreateRejectsBadColor(t *testing.T) {
	rec := httptest.NewRecorder()
	CategoryCreate(&stubCategoryService{}, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/categories", `{"name":"Lighting","color":"green"}`, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCategoryUpdateConflict(t *testing.T) {
	svc := &stubCategoryService{err: pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")}
	id := uuid.New()
	rec := httptest.NewRecorder()
	CategoryUpdate(svc, nil).ServeHTTP(rec, newRequest(http.MethodPatch, "/api/v1/categories/"+id.String(), `{"name":"Audio"}`, map[string]string{"categoryId": id.String()}))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	if svc.updated.Name == nil || *svc.updated.Name != "Audio" {
		t.Fatalf("expected name passed through")
	}
}

func TestCategoryDelete(t *testing.T) {
	svc := &stubCategoryService{}
	id := uuid.New()
	rec := httptest.NewRecorder()
	CategoryDelete(svc, nil).ServeHTTP(rec, newRequest(http.MethodDelete, "/api/v1/categories/"+id.String(), "", map[string]string{"categoryId": id.String()}))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rec.Code)
	}
	if svc.deleted != id {
		t.Fatalf("expected delete of %s", id)
	}
}

func TestCategoryDeleteRejectsBadID(t *testing.T) {
	rec := httptest.NewRecorder()
	CategoryDelete(&stubCategoryService{}, nil).ServeHTTP(rec, newRequest(http.MethodDelete, "/api/v1/categories/x", "", map[string]string{"categoryId": "x"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
