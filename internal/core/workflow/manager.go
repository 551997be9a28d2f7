package workflow

import (
	"sync"

	"recipe-importer/internal/core/session"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// Conversion 一次進行中的轉換，工作流與校對狀態的擁有者
type Conversion struct {
	ID       string
	Workflow *Workflow

	mu      sync.Mutex
	session *session.Session
}

// Session 取得目前的校對狀態，尚未進入校對階段時為 nil
func (c *Conversion) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SetSession 綁定校對狀態，進入 review/ready 時由 API 層建立
func (c *Conversion) SetSession(s *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// ClearSession 捨棄校對狀態（reset 或保存完成時）
func (c *Conversion) ClearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
}

// Manager 進行中轉換的註冊表
type Manager struct {
	mu          sync.RWMutex
	conversions map[string]*Conversion
}

// NewManager 創建轉換註冊表
func NewManager() *Manager {
	return &Manager{
		conversions: make(map[string]*Conversion),
	}
}

// Create 創建新的轉換
func (m *Manager) Create(extractor Extractor, converter ManualConverter) *Conversion {
	conv := &Conversion{
		ID:       common.GenerateUUID(),
		Workflow: New(extractor, converter),
	}

	m.mu.Lock()
	m.conversions[conv.ID] = conv
	m.mu.Unlock()

	common.LogInfo("轉換已建立", zap.String("conversion_id", conv.ID))
	return conv
}

// Get 取得轉換
func (m *Manager) Get(id string) (*Conversion, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.conversions[id]
	return conv, ok
}

// Remove 移除轉換（保存完成或放棄時）
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.conversions, id)
	m.mu.Unlock()

	common.LogInfo("轉換已移除", zap.String("conversion_id", id))
}

// Count 進行中轉換數量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conversions)
}
