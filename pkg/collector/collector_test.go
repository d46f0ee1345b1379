package collector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/red1oon/ADUI/pkg/adapter"
	"github.com/red1oon/ADUI/pkg/displaylogic/expr"
	"github.com/red1oon/ADUI/pkg/schema"
	"github.com/red1oon/ADUI/pkg/testsupport"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	textAreas    []string
	infoMessages []string
	prompts      []string
	inputPos     int
	selectPos    int
	multiPos     int
	confirmPos   int
	textPos      int
	validators   map[string]func(string) error
}

func (s *stubDriver) keepValidator(message string, validate func(string) error) {
	if s.validators == nil {
		s.validators = make(map[string]func(string) error)
	}
	s.validators[message] = validate
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	s.keepValidator(cfg.Message, cfg.Validator)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, cfg SelectConfig) ([]int, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	s.keepValidator(cfg.Message, cfg.Validator)
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

type stubRefs map[string][]schema.ReferenceValue

func (s stubRefs) GetReferenceValues(_ context.Context, id string) ([]schema.ReferenceValue, error) {
	return s[id], nil
}

func inspectionWindow(t *testing.T) schema.WindowDefinition {
	t.Helper()
	doc := testsupport.LoadDocument(t, testsupport.Fixture("inspection.json"))
	result, err := adapter.New(adapter.WithDisplayLogic(true)).AdaptDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	return result.Window
}

var depots = stubRefs{"DEPOTS": {
	{Key: "MAN", Value: "Manchester", SortOrder: 1},
	{Key: "LHR", Value: "Heathrow", SortOrder: 0},
}}

func TestCollect_Inspection(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"TOO-LONG-PLATE-123", "AB12 CDE", "a.jpg, b.jpg", "abc", "42100"},
		selectIdx: []int{2, 2},
		confirm:   []bool{true},
		textAreas: []string{"scratch on door"},
	}
	c := New(WithPromptDriver(driver), WithReferences(depots), WithEvaluator(expr.New()))

	record, err := c.Collect(context.Background(), inspectionWindow(t))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	want := map[string]schema.FieldValue{
		"plate":        {Raw: "AB12 CDE", Display: "AB12 CDE"},
		"depot":        {Raw: "MAN", Display: "Manchester"},
		"tyres":        {Raw: "worn", Display: "Worn"},
		"damage":       {Raw: true, Display: "Yes"},
		"damage_notes": {Raw: "scratch on door", Display: "scratch on door"},
		"photos":       {Raw: []string{"a.jpg", "b.jpg"}, Display: "2 item(s)", Metadata: map[string]any{"count": 2}},
		"mileage":      {Raw: int64(42100), Display: "42100"},
	}
	if diff := cmp.Diff(want, record.Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if record.WindowID != testsupport.InspectionWindowID || record.Metadata.Status != schema.RecordStatusDraft {
		t.Fatalf("unexpected record header %+v", record)
	}

	var invalid []string
	for _, msg := range driver.infoMessages {
		if strings.HasPrefix(msg, "Invalid") {
			invalid = append(invalid, msg)
		}
	}
	if len(invalid) != 2 {
		t.Fatalf("expected two validation messages, got %v", driver.infoMessages)
	}
}

func TestCollect_SkipsHiddenFields(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"AB12", "", ""},
		selectIdx: []int{0, 1},
		confirm:   []bool{false},
	}
	c := New(WithPromptDriver(driver), WithReferences(depots), WithEvaluator(expr.New()))

	record, err := c.Collect(context.Background(), inspectionWindow(t))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, prompt := range driver.prompts {
		if strings.Contains(prompt, "Damage notes") {
			t.Fatalf("damage notes should stay hidden, prompts: %v", driver.prompts)
		}
	}
	if _, ok := record.Values["depot"]; ok {
		t.Fatalf("choosing (none) must leave depot unset")
	}
	if _, ok := record.Values["photos"]; ok {
		t.Fatalf("empty optional photos must stay unset")
	}
	if got := record.Values["tyres"].Raw; got != "ok" {
		t.Fatalf("tyres = %v, want ok", got)
	}
}

func TestEdit_ChecklistAndReadOnly(t *testing.T) {
	window := schema.WindowDefinition{
		ID: "CHECK",
		Tabs: []schema.TabDefinition{{
			ID: "main",
			Fields: []schema.FieldDefinition{
				{ID: "asset", Name: "Asset", DisplayType: schema.DisplayTypeString, Displayed: true, ReadOnly: true},
				{
					ID:          "steps",
					Name:        "Steps",
					DisplayType: schema.DisplayTypeQRChecklist,
					Displayed:   true,
					Mandatory:   true,
					Data: map[string]any{"items": []any{
						"power",
						map[string]any{"id": "seal", "label": "Seal intact"},
					}},
				},
			},
		}},
	}
	seed := schema.NewRecord("CHECK")
	seed.Set("asset", "PUMP-7", "")

	driver := &stubDriver{multiIdx: [][]int{{}, {1}}}
	record, err := New(WithPromptDriver(driver)).Edit(context.Background(), window, seed)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got := record.Values["asset"].Raw; got != "PUMP-7" {
		t.Fatalf("read-only value must be kept, got %v", got)
	}
	steps := record.Values["steps"]
	if diff := cmp.Diff([]string{"seal"}, steps.Raw); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}
	if steps.Display != "1/2" {
		t.Fatalf("display = %q", steps.Display)
	}
	if driver.multiPos != 2 {
		t.Fatalf("empty mandatory checklist should be re-prompted")
	}
	if _, ok := seed.Values["steps"]; ok {
		t.Fatalf("seed record must not be modified")
	}
}

func TestCollect_DriverErrorAborts(t *testing.T) {
	driver := &stubDriver{}
	_, err := New(WithPromptDriver(driver)).Collect(context.Background(), inspectionWindow(t))
	if err == nil || !strings.Contains(err.Error(), "plate") {
		t.Fatalf("expected error naming the field, got %v", err)
	}
}

func TestCheckEntries(t *testing.T) {
	cases := []struct {
		name    string
		entries []string
		min     int
		max     int
		dup     bool
		wantErr bool
	}{
		{name: "ok", entries: []string{"a", "b"}, max: 5},
		{name: "too many", entries: []string{"a", "b", "c"}, max: 2, wantErr: true},
		{name: "too few", entries: []string{"a"}, min: 2, wantErr: true},
		{name: "duplicate", entries: []string{"a", "a"}, wantErr: true},
		{name: "duplicate allowed", entries: []string{"a", "a"}, dup: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := checkEntries(tc.entries, false, tc.min, tc.max, tc.dup)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestCollect_PassesInlineValidators(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"AB12 CDE", "", ""},
		selectIdx: []int{0, 1},
		confirm:   []bool{true},
		textAreas: []string{""},
	}
	c := New(WithPromptDriver(driver), WithReferences(depots), WithEvaluator(expr.New()))
	if _, err := c.Collect(context.Background(), inspectionWindow(t)); err != nil {
		t.Fatalf("collect: %v", err)
	}

	cases := []struct {
		prompt string
		answer string
		ok     bool
	}{
		{prompt: "Plate *", answer: "TOO-LONG-PLATE-123", ok: false},
		{prompt: "Plate *", answer: "", ok: false},
		{prompt: "Plate *", answer: " AB12 CDE ", ok: true},
		{prompt: "Mileage", answer: "abc", ok: false},
		{prompt: "Mileage", answer: "", ok: true},
		{prompt: "Mileage", answer: "42100", ok: true},
		{prompt: "Photos", answer: "a.jpg, a.jpg", ok: false},
		{prompt: "Photos", answer: "a.jpg, b.jpg", ok: true},
		{prompt: "Damage notes", answer: "", ok: true},
	}
	for _, tc := range cases {
		validate := driver.validators[tc.prompt]
		if validate == nil {
			t.Fatalf("no validator passed for %q (have %v)", tc.prompt, driver.prompts)
		}
		if err := validate(tc.answer); (err == nil) != tc.ok {
			t.Fatalf("%s validator(%q) = %v, want ok=%v", tc.prompt, tc.answer, err, tc.ok)
		}
	}
}
