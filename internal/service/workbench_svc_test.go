package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"tcg_inventory_v1/internal/model"
	"tcg_inventory_v1/pkg/tcgid"
)

// ==================== Mock ====================

type mockInventoryStore struct {
	mu       sync.Mutex
	creates  int
	updates  []string
	createFn func(ctx context.Context, payload model.SavePayload) (string, error)
	updateFn func(ctx context.Context, sku string, payload model.SavePayload) error
}

func (m *mockInventoryStore) CreateItem(ctx context.Context, payload model.SavePayload) (string, error) {
	m.mu.Lock()
	m.creates++
	m.mu.Unlock()
	if m.createFn != nil {
		return m.createFn(ctx, payload)
	}
	return "SKU-NEW", nil
}

func (m *mockInventoryStore) UpdateItem(ctx context.Context, sku string, payload model.SavePayload) error {
	m.mu.Lock()
	m.updates = append(m.updates, sku)
	m.mu.Unlock()
	if m.updateFn != nil {
		return m.updateFn(ctx, sku, payload)
	}
	return nil
}

type mockItemLoader struct {
	getFn func(ctx context.Context, sku string) (tcgid.InventoryItemResp, error)
}

func (m *mockItemLoader) GetItem(ctx context.Context, sku string) (tcgid.InventoryItemResp, error) {
	return m.getFn(ctx, sku)
}

type mockPendingRepo struct {
	mu    sync.Mutex
	items map[string]*model.PendingItem
}

func newMockPendingRepo() *mockPendingRepo {
	return &mockPendingRepo{items: map[string]*model.PendingItem{}}
}

func (m *mockPendingRepo) GetPending(ctx context.Context, sessionID string) (*model.PendingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := m.items[sessionID]
	if item == nil || item.Status != model.PendingItemStatusPending {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (m *mockPendingRepo) Remember(ctx context.Context, sessionID, sku string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[sessionID] = &model.PendingItem{SessionID: sessionID, SKU: sku, Status: model.PendingItemStatusPending}
	return nil
}

func (m *mockPendingRepo) RecordFailure(ctx context.Context, sessionID, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item := m.items[sessionID]; item != nil {
		item.Attempts++
		item.LastError = errMsg
	}
	return nil
}

func (m *mockPendingRepo) Resolve(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item := m.items[sessionID]; item != nil {
		item.Status = model.PendingItemStatusResolved
	}
	return nil
}

func (m *mockPendingRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, sessionID)
	return nil
}

func (m *mockPendingRepo) ListStale(ctx context.Context, before time.Time, limit int) ([]model.PendingItem, error) {
	return nil, nil
}

type mockRecorder struct {
	noopUploadRecorder
	mu      sync.Mutex
	opened  int
	closed  int
	submits []string
}

func (m *mockRecorder) SessionOpened() { m.mu.Lock(); m.opened++; m.mu.Unlock() }
func (m *mockRecorder) SessionClosed() { m.mu.Lock(); m.closed++; m.mu.Unlock() }
func (m *mockRecorder) ObserveSubmit(mode string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := "success"
	if err != nil {
		status = "error"
	}
	m.submits = append(m.submits, mode+":"+status)
}

type workbenchFixture struct {
	svc      *WorkbenchService
	store    *mockInventoryStore
	issuer   *mockIssuer
	pending  *mockPendingRepo
	recorder *mockRecorder
}

func newWorkbenchFixture(t *testing.T, loader ItemLoader) *workbenchFixture {
	t.Helper()
	source := &mockTaxonomySource{fetchFn: func(ctx context.Context, categoryID string) ([]byte, error) {
		return []byte(testTaxonomyJSON), nil
	}}
	f := &workbenchFixture{
		store:    &mockInventoryStore{},
		issuer:   &mockIssuer{},
		pending:  newMockPendingRepo(),
		recorder: &mockRecorder{},
	}
	f.svc = NewWorkbenchService(WorkbenchDeps{
		Taxonomy: NewTaxonomyService(source, newMockSnapshotRepo(), time.Minute, nil),
		Store:    f.store,
		Loader:   loader,
		Issuer:   f.issuer,
		Transfer: &mockTransfer{},
		Pending:  f.pending,
		Recorder: f.recorder,
	})
	t.Cleanup(func() { f.svc.CloseAll(context.Background()) })
	return f
}

func fillValid(t *testing.T, s *FormSession) {
	t.Helper()
	if err := s.PatchValues(map[string]string{"title": "Charizard Holo"}); err != nil {
		t.Fatalf("PatchValues() error = %v", err)
	}
	if err := s.SetAspect("Game", "Pokémon TCG"); err != nil {
		t.Fatalf("SetAspect() error = %v", err)
	}
}

// ==================== 打开 ====================

func TestWorkbenchService_OpenCreate(t *testing.T) {
	f := newWorkbenchFixture(t, nil)

	session, err := f.svc.Open(context.Background(), OpenRequest{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if session.Mode() != model.FormModeCreate {
		t.Errorf("Mode = %v, want create", session.Mode())
	}
	view := session.View()
	if len(view.Groups) == 0 {
		t.Errorf("Groups 不应为空")
	}
	if view.Values.Quantity != "1" || view.Values.Locale != "en_US" {
		t.Errorf("默认值未填充: %+v", view.Values)
	}

	got, err := f.svc.Get(session.ID())
	if err != nil || got != session {
		t.Errorf("Get() = %v, %v", got, err)
	}
	if f.recorder.opened != 1 {
		t.Errorf("opened = %d, want 1", f.recorder.opened)
	}
}

func TestWorkbenchService_OpenEdit(t *testing.T) {
	loader := &mockItemLoader{getFn: func(ctx context.Context, sku string) (tcgid.InventoryItemResp, error) {
		if sku != "SKU-7" {
			return nil, ErrItemNotFound
		}
		return tcgid.InventoryItemResp{
			"product_title":      "Blastoise",
			"quantity":           float64(2),
			"product_image_urls": []any{"https://cdn.example.com/a/master.jpg"},
			"product": map[string]any{
				"aspects": map[string]any{"Game": []any{"Pokémon TCG"}, "Unknown": "x"},
			},
		}, nil
	}}
	f := newWorkbenchFixture(t, loader)

	session, err := f.svc.Open(context.Background(), OpenRequest{Mode: model.FormModeEdit, SKU: "SKU-7"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	view := session.View()
	if view.SKU != "SKU-7" || view.Values.Title != "Blastoise" || view.Values.Quantity != "2" {
		t.Errorf("View = %+v", view)
	}
	if len(view.Images) != 1 || view.Images[0].Origin != model.ImageOriginHosted {
		t.Errorf("Images = %+v", view.Images)
	}
	if view.Aspects["Game"] != "Pokémon TCG" {
		t.Errorf("Game = %v", view.Aspects["Game"])
	}
	if _, ok := view.Aspects["Unknown"]; ok {
		t.Errorf("未知属性应被剔除")
	}

	if _, err := f.svc.Open(context.Background(), OpenRequest{Mode: model.FormModeEdit}); !errors.Is(err, ErrMissingSKU) {
		t.Errorf("Open() error = %v, want ErrMissingSKU", err)
	}
	if _, err := f.svc.Open(context.Background(), OpenRequest{Mode: model.FormModeEdit, SKU: "nope"}); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Open() error = %v, want ErrItemNotFound", err)
	}
}

// ==================== 提交 ====================

func TestWorkbenchService_SubmitCreate(t *testing.T) {
	f := newWorkbenchFixture(t, nil)
	f.store.createFn = func(ctx context.Context, payload model.SavePayload) (string, error) {
		if payload.Product.Title != "Charizard Holo" {
			t.Errorf("Title = %v", payload.Product.Title)
		}
		if len(payload.Product.ImageURLs) != 0 {
			t.Errorf("创建请求不应包含本地图片")
		}
		return "SKU-9", nil
	}

	session, _ := f.svc.Open(context.Background(), OpenRequest{})
	fillValid(t, session)
	if _, err := session.AddImages(context.Background(), pngFiles(2, "card")); err != nil {
		t.Fatalf("AddImages() error = %v", err)
	}

	result, err := f.svc.Submit(context.Background(), session.ID())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.SKU != "SKU-9" || len(result.Uploaded) != 2 {
		t.Errorf("result = %+v", result)
	}
	if result.Message != "Inventory item SKU-9 created successfully." {
		t.Errorf("Message = %v", result.Message)
	}
	if result.Stage != model.SubmitStageRedirecting {
		t.Errorf("Stage = %v", result.Stage)
	}
	if session.Mode() != model.FormModeEdit || session.SKU() != "SKU-9" {
		t.Errorf("创建后应转为编辑模式: mode=%v sku=%v", session.Mode(), session.SKU())
	}
	for _, e := range session.Images() {
		if e.Status != model.ImageStatusUploaded {
			t.Errorf("图片状态 = %v, want UPLOADED", e.Status)
		}
	}
	if item := f.pending.items[session.ID()]; item == nil || item.Status != model.PendingItemStatusResolved {
		t.Errorf("待补传记录应已完成: %+v", item)
	}
	if p := session.View().Progress; p == nil || p.Uploaded != 2 || p.Total != 2 {
		t.Errorf("Progress = %+v", p)
	}
}

func TestWorkbenchService_SubmitCreatePartialFailure(t *testing.T) {
	f := newWorkbenchFixture(t, nil)
	failing := true
	f.issuer.issueFn = func(ctx context.Context, itemKey, filename string) (*model.UploadDestination, error) {
		if failing && strings.HasPrefix(filename, "card1") {
			return nil, errors.New("Failed to request upload URLs.")
		}
		return okDestination(filename), nil
	}

	session, _ := f.svc.Open(context.Background(), OpenRequest{})
	fillValid(t, session)
	_, _ = session.AddImages(context.Background(), pngFiles(3, "card"))

	result, err := f.svc.Submit(context.Background(), session.ID())
	var partial *PartialCreateError
	if !errors.As(err, &partial) {
		t.Fatalf("Submit() error = %v, want PartialCreateError", err)
	}
	want := "Failed to request upload URLs. Inventory item SKU-NEW was created successfully. Submit again to retry the uploads, or edit the item later from the inventory page."
	if err.Error() != want {
		t.Errorf("error = %q", err.Error())
	}
	if result == nil || result.SKU != "SKU-NEW" || len(result.Uploaded) != 1 || result.Stage != model.SubmitStageError {
		t.Errorf("result = %+v", result)
	}
	if session.Mode() != model.FormModeCreate {
		t.Errorf("失败后应保持创建模式")
	}
	if item := f.pending.items[session.ID()]; item == nil || item.Attempts != 1 {
		t.Errorf("应记录失败: %+v", item)
	}

	// 再次提交复用 SKU，不重复创建
	failing = false
	result, err = f.svc.Submit(context.Background(), session.ID())
	if err != nil {
		t.Fatalf("重试 Submit() error = %v", err)
	}
	if f.store.creates != 1 {
		t.Errorf("creates = %d, want 1", f.store.creates)
	}
	if len(f.store.updates) != 1 || f.store.updates[0] != "SKU-NEW" {
		t.Errorf("updates = %v", f.store.updates)
	}
	if len(result.Uploaded) != 2 {
		t.Errorf("重试上传数 = %d, want 2", len(result.Uploaded))
	}
	if session.Mode() != model.FormModeEdit {
		t.Errorf("成功后应转为编辑模式")
	}
}

func TestWorkbenchService_SubmitCreateError(t *testing.T) {
	f := newWorkbenchFixture(t, nil)
	f.store.createFn = func(ctx context.Context, payload model.SavePayload) (string, error) {
		return "", errors.New("Inventory item created but no SKU was returned.")
	}

	session, _ := f.svc.Open(context.Background(), OpenRequest{})
	fillValid(t, session)

	if _, err := f.svc.Submit(context.Background(), session.ID()); err == nil {
		t.Fatal("期望返回错误")
	}
	view := session.View()
	if view.SubmitState != model.SubmitStateFailed || view.LastError != "Inventory item created but no SKU was returned." {
		t.Errorf("View = %+v", view)
	}
	if view.SKU != "" {
		t.Errorf("创建失败不应写入 SKU")
	}
}

func TestWorkbenchService_SubmitValidation(t *testing.T) {
	f := newWorkbenchFixture(t, nil)
	session, _ := f.svc.Open(context.Background(), OpenRequest{})

	result, err := f.svc.Submit(context.Background(), session.ID())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Submit() error = %v, want ValidationError", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
	if f.store.creates != 0 {
		t.Errorf("校验失败不应调用创建")
	}
	if len(f.recorder.submits) != 1 || f.recorder.submits[0] != "create:error" {
		t.Errorf("submits = %v", f.recorder.submits)
	}
}

func TestWorkbenchService_SubmitEdit(t *testing.T) {
	loader := &mockItemLoader{getFn: func(ctx context.Context, sku string) (tcgid.InventoryItemResp, error) {
		return tcgid.InventoryItemResp{"title": "Venusaur", "product": map[string]any{"aspects": map[string]any{"Game": "Pokémon TCG"}}}, nil
	}}
	f := newWorkbenchFixture(t, loader)
	session, _ := f.svc.Open(context.Background(), OpenRequest{Mode: model.FormModeEdit, SKU: "SKU-3"})

	result, err := f.svc.Submit(context.Background(), session.ID())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Message != "Inventory item updated successfully." || result.SKU != "SKU-3" {
		t.Errorf("result = %+v", result)
	}
	if len(f.store.updates) != 1 || f.store.updates[0] != "SKU-3" {
		t.Errorf("updates = %v", f.store.updates)
	}
}

// ==================== 属性结构刷新 ====================

func TestWorkbenchService_RefreshSchemaRecoversDegradedSession(t *testing.T) {
	f := newWorkbenchFixture(t, nil)
	online := false
	source := &mockTaxonomySource{fetchFn: func(ctx context.Context, categoryID string) ([]byte, error) {
		if !online {
			return nil, errors.New("taxonomy unavailable")
		}
		return []byte(testTaxonomyJSON), nil
	}}
	f.svc.taxonomy = NewTaxonomyService(source, newMockSnapshotRepo(), time.Minute, nil)

	session, err := f.svc.Open(context.Background(), OpenRequest{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !session.Schema().Empty() || session.View().AspectsWarning == "" {
		t.Fatalf("上游失败时应降级为空结构并带提示")
	}
	if err := session.SetAspect("Game", "Pokémon TCG"); !errors.Is(err, ErrAspectsUnavailable) {
		t.Errorf("SetAspect() error = %v, want ErrAspectsUnavailable", err)
	}

	// 上游仍不可用时保持降级
	if got := f.svc.RefreshSchemas(context.Background()); got != 0 {
		t.Errorf("RefreshSchemas() = %d, want 0", got)
	}

	online = true
	if got := f.svc.RefreshSchemas(context.Background()); got != 1 {
		t.Errorf("RefreshSchemas() = %d, want 1", got)
	}
	if session.Schema().Empty() {
		t.Fatalf("刷新后结构不应为空")
	}
	if w := session.View().AspectsWarning; w != "" {
		t.Errorf("AspectsWarning = %q, want empty", w)
	}
	if err := session.SetAspect("Game", "Pokémon TCG"); err != nil {
		t.Fatalf("SetAspect() error = %v", err)
	}

	// 已有结构的会话不再重新加载
	calls := source.calls
	if f.svc.RefreshSchema(context.Background(), session) {
		t.Errorf("RefreshSchema() = true, want false")
	}
	if source.calls != calls {
		t.Errorf("calls = %d, want %d", source.calls, calls)
	}
	if got := session.Aspects()["Game"]; got != "Pokémon TCG" {
		t.Errorf("Game = %v, want Pokémon TCG", got)
	}
}

// ==================== 生命周期 ====================

func TestWorkbenchService_CloseAndIdle(t *testing.T) {
	f := newWorkbenchFixture(t, nil)
	a, _ := f.svc.Open(context.Background(), OpenRequest{})
	b, _ := f.svc.Open(context.Background(), OpenRequest{})
	_, _ = a.AddImages(context.Background(), pngFiles(2, "x"))

	released, err := f.svc.Close(context.Background(), a.ID())
	if err != nil || released != 2 {
		t.Errorf("Close() = %d, %v, want 2, nil", released, err)
	}
	if _, err := f.svc.Get(a.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
	}
	if _, err := f.svc.Close(context.Background(), a.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("重复 Close() error = %v", err)
	}

	if n := f.svc.CloseIdle(context.Background(), time.Hour); n != 0 {
		t.Errorf("CloseIdle(1h) = %d, want 0", n)
	}
	time.Sleep(5 * time.Millisecond)
	if n := f.svc.CloseIdle(context.Background(), time.Millisecond); n != 1 {
		t.Errorf("CloseIdle(1ms) = %d, want 1", n)
	}
	if f.svc.Count() != 0 || !b.Closed() {
		t.Errorf("会话应全部关闭")
	}
	if f.recorder.closed != 2 {
		t.Errorf("closed = %d, want 2", f.recorder.closed)
	}
}
