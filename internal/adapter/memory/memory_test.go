package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/bplmmv/google-drive-toda-live/internal/adapter"
	"github.com/bplmmv/google-drive-toda-live/internal/model"
)

func TestAdapter_ListChildren(t *testing.T) {
	m := New()
	ctx := context.Background()

	reports := m.AddFolder("Reports", "")
	m.AddDocument("Notes", "", "<p>hi</p>")
	m.AddGrid("Q1", reports, nil)

	root, err := m.ListChildren(ctx, model.RootID, 100)
	if err != nil {
		t.Fatalf("ListChildren failed: %v", err)
	}
	if len(root) != 2 {
		t.Fatalf("Expected 2 items in root, got %d", len(root))
	}
	if root[0].Kind != model.KindFolder {
		t.Errorf("Expected folder kind, got %v", root[0].Kind)
	}

	inner, err := m.ListChildren(ctx, reports, 100)
	if err != nil {
		t.Fatalf("ListChildren failed: %v", err)
	}
	if len(inner) != 1 || inner[0].Kind != model.KindGrid {
		t.Errorf("Expected one grid in Reports, got %+v", inner)
	}
}

func TestAdapter_PageSize(t *testing.T) {
	m := New()
	for i := 0; i < 5; i++ {
		m.AddFolder("f", "")
	}
	items, _ := m.ListChildren(context.Background(), model.RootID, 3)
	if len(items) != 3 {
		t.Errorf("Expected 3 items, got %d", len(items))
	}
}

func TestAdapter_GetMetadata_NotFound(t *testing.T) {
	m := New()
	_, err := m.GetMetadata(context.Background(), "nonexistent-id")
	if !errors.Is(err, adapter.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAdapter_ReplaceContent(t *testing.T) {
	m := New()
	ctx := context.Background()
	id := m.AddDocument("Notes", "", "<p>v1</p>")

	if err := m.ReplaceContent(ctx, id, "Notes", []byte("<p>v2</p>")); err != nil {
		t.Fatalf("ReplaceContent failed: %v", err)
	}
	got, err := m.ExportMarkup(ctx, id)
	if err != nil {
		t.Fatalf("ExportMarkup failed: %v", err)
	}
	if got != "<p>v2</p>" {
		t.Errorf("Expected '<p>v2</p>', got '%s'", got)
	}
}

func TestAdapter_BatchUpdateCells(t *testing.T) {
	m := New()
	ctx := context.Background()
	id := m.AddGrid("Budget", "", [][]string{{"a"}})

	err := m.BatchUpdateCells(ctx, id, 0, []model.CellWrite{
		{Cell: model.Cell{Row: 0, Col: 0}, Value: model.NumberValue(6)},
		{Cell: model.Cell{Row: 2, Col: 1}, Value: model.BoolValue(true)},
	})
	if err != nil {
		t.Fatalf("BatchUpdateCells failed: %v", err)
	}

	g, _ := m.GetGrid(ctx, id)
	if g.Value(0, 0) != "6" {
		t.Errorf("Expected '6', got '%s'", g.Value(0, 0))
	}
	if g.Value(2, 1) != "TRUE" {
		t.Errorf("Expected 'TRUE', got '%s'", g.Value(2, 1))
	}
	if len(m.Batches()) != 1 {
		t.Errorf("Expected 1 recorded batch, got %d", len(m.Batches()))
	}
}

func TestAdapter_SetError(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.SetError(OpProbe, adapter.ErrUnauthorized)
	if err := m.Probe(ctx); !errors.Is(err, adapter.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
	m.SetError(OpProbe, nil)
	if err := m.Probe(ctx); err != nil {
		t.Errorf("Expected nil after clearing, got %v", err)
	}
	if m.Calls(OpProbe) != 2 {
		t.Errorf("Expected 2 probe calls, got %d", m.Calls(OpProbe))
	}
}

func TestAdapter_GetGrid_WrongKind(t *testing.T) {
	m := New()
	id := m.AddDocument("Notes", "", "")
	_, err := m.GetGrid(context.Background(), id)
	if !errors.Is(err, adapter.ErrUnsupportedKind) {
		t.Errorf("Expected ErrUnsupportedKind, got %v", err)
	}
}
