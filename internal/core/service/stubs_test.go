package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory backend
// ---------------------------------------------------------------------------

type procCall struct {
	name string
	args map[string]any
}

type stubBackend struct {
	mu sync.Mutex

	accounts map[string]string // email -> password
	users    map[string]string // email -> user id
	profiles map[string]domain.Profile
	clients  []domain.Client
	projects []domain.Project
	units    []domain.HousingUnit
	txs      []domain.Transaction
	objects  map[string][]byte

	calls      []string
	fail       map[string]error
	onCall     func(op string)
	signOuts   []string
	signUps    []string
	procedures []procCall
	clientQ    []ports.ClientFilter
	seq        int
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		accounts: make(map[string]string),
		users:    make(map[string]string),
		profiles: make(map[string]domain.Profile),
		objects:  make(map[string][]byte),
		fail:     make(map[string]error),
	}
}

// hit records op, runs the onCall hook and returns the error configured for
// op. The hook may change the configured error.
func (b *stubBackend) hit(op string) error {
	b.mu.Lock()
	b.calls = append(b.calls, op)
	hook := b.onCall
	b.mu.Unlock()
	if hook != nil {
		hook(op)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fail[op]
}

// setFail configures the error returned for op; safe while calls are in flight.
func (b *stubBackend) setFail(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.fail, op)
		return
	}
	b.fail[op] = err
}

func (b *stubBackend) count(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (b *stubBackend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s%d", prefix, b.seq)
}

func (b *stubBackend) addAccount(email, password string, p domain.Profile) {
	b.accounts[email] = password
	b.users[email] = p.ID
	b.profiles[p.ID] = p
}

func (b *stubBackend) Auth() ports.AuthGateway          { return stubAuth{b} }
func (b *stubBackend) Ephemeral() ports.CredentialIssuer { return stubIssuer{b} }
func (b *stubBackend) As(s *domain.AuthSession) ports.Gateway {
	return stubGateway{b: b, session: s}
}

type stubAuth struct{ b *stubBackend }

func (a stubAuth) SignIn(_ context.Context, email, password string) (*domain.AuthSession, error) {
	if err := a.b.hit("auth.sign_in"); err != nil {
		return nil, err
	}
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	if pw, ok := a.b.accounts[email]; !ok || pw != password {
		return nil, domain.ErrInvalidCredentials
	}
	return &domain.AuthSession{
		AccessToken:  "access-" + a.b.users[email],
		RefreshToken: "refresh-" + a.b.users[email],
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         domain.AuthUser{ID: a.b.users[email], Email: email},
	}, nil
}

func (a stubAuth) Refresh(_ context.Context, refreshToken string) (*domain.AuthSession, error) {
	if err := a.b.hit("auth.refresh"); err != nil {
		return nil, err
	}
	userID := strings.TrimPrefix(refreshToken, "refresh-")
	return &domain.AuthSession{
		AccessToken:  "renewed-" + userID,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         domain.AuthUser{ID: userID},
	}, nil
}

func (a stubAuth) SignOut(_ context.Context, accessToken string) error {
	if err := a.b.hit("auth.sign_out"); err != nil {
		return err
	}
	a.b.mu.Lock()
	a.b.signOuts = append(a.b.signOuts, accessToken)
	a.b.mu.Unlock()
	return nil
}

type stubIssuer struct{ b *stubBackend }

func (i stubIssuer) SignUp(_ context.Context, email, password string, meta domain.UserMetadata) (*domain.AuthSession, error) {
	if err := i.b.hit("auth.sign_up"); err != nil {
		return nil, err
	}
	i.b.mu.Lock()
	defer i.b.mu.Unlock()
	if _, exists := i.b.accounts[email]; exists {
		return nil, domain.ErrConflict
	}
	id := i.b.nextID("user-")
	i.b.accounts[email] = password
	i.b.users[email] = id
	i.b.signUps = append(i.b.signUps, email)
	return &domain.AuthSession{
		AccessToken: "access-" + id,
		User:        domain.AuthUser{ID: id, Email: email, Metadata: meta},
	}, nil
}

type stubGateway struct {
	b       *stubBackend
	session *domain.AuthSession
}

func (g stubGateway) Profiles() ports.ProfileRepository         { return stubProfiles{g.b} }
func (g stubGateway) Clients() ports.ClientRepository           { return stubClients{g.b} }
func (g stubGateway) Projects() ports.ProjectRepository         { return stubProjects{g.b} }
func (g stubGateway) HousingUnits() ports.HousingUnitRepository { return stubUnits{g.b} }
func (g stubGateway) Transactions() ports.TransactionRepository { return stubTxs{g.b} }
func (g stubGateway) Storage() ports.ObjectStorage              { return stubStorage{g.b} }
func (g stubGateway) Procedures() ports.ProcedureCaller         { return stubProcedures{g.b} }

type stubProfiles struct{ b *stubBackend }

func (r stubProfiles) Get(_ context.Context, id string) (*domain.Profile, error) {
	if err := r.b.hit("profiles.get"); err != nil {
		return nil, err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	p, ok := r.b.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r stubProfiles) List(_ context.Context) ([]domain.Profile, error) {
	if err := r.b.hit("profiles.list"); err != nil {
		return nil, err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	out := make([]domain.Profile, 0, len(r.b.profiles))
	for _, p := range r.b.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r stubProfiles) Insert(_ context.Context, p domain.Profile) (*domain.Profile, error) {
	if err := r.b.hit("profiles.insert"); err != nil {
		return nil, err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, exists := r.b.profiles[p.ID]; exists {
		return nil, domain.ErrConflict
	}
	p.CreatedAt = time.Now()
	r.b.profiles[p.ID] = p
	return &p, nil
}

func (r stubProfiles) Update(_ context.Context, id string, patch domain.ProfilePatch) error {
	if err := r.b.hit("profiles.update"); err != nil {
		return err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	p, ok := r.b.profiles[id]
	if !ok {
		return domain.ErrNotFound
	}
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	if patch.Active != nil {
		p.Active = *patch.Active
	}
	r.b.profiles[id] = p
	return nil
}

func (r stubProfiles) Delete(_ context.Context, id string) error {
	if err := r.b.hit("profiles.delete"); err != nil {
		return err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	delete(r.b.profiles, id)
	return nil
}

type stubClients struct{ b *stubBackend }

func (r stubClients) List(_ context.Context, f ports.ClientFilter) ([]domain.Client, error) {
	if err := r.b.hit("clients.list"); err != nil {
		return nil, err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	r.b.clientQ = append(r.b.clientQ, f)
	var out []domain.Client
	for _, c := range r.b.clients {
		if f.RUT != "" && c.RUT != f.RUT {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r stubClients) Insert(_ context.Context, c domain.Client) (*domain.Client, error) {
	if err := r.b.hit("clients.insert"); err != nil {
		return nil, err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	c.ID = r.b.nextID("client-")
	r.b.clients = append(r.b.clients, c)
	return &c, nil
}

func (r stubClients) Update(_ context.Context, id string, patch domain.ClientPatch) error {
	if err := r.b.hit("clients.update"); err != nil {
		return err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	for i, c := range r.b.clients {
		if c.ID == id {
			r.b.clients[i] = patch.Apply(c)
		}
	}
	return nil
}

func (r stubClients) Delete(_ context.Context, id string) error {
	if err := r.b.hit("clients.delete"); err != nil {
		return err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var keep []domain.Client
	for _, c := range r.b.clients {
		if c.ID != id {
			keep = append(keep, c)
		}
	}
	r.b.clients = keep
	return nil
}

type stubProjects struct{ b *stubBackend }

func (r stubProjects) ListByClient(_ context.Context, clientID string) ([]domain.Project, error) {
	if err := r.b.hit("projects.list"); err != nil {
		return nil, err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []domain.Project
	for _, p := range r.b.projects {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r stubProjects) Insert(_ context.Context, p domain.Project) (*domain.Project, error) {
	if err := r.b.hit("projects.insert"); err != nil {
		return nil, err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	p.ID = r.b.nextID("project-")
	r.b.projects = append(r.b.projects, p)
	return &p, nil
}

func (r stubProjects) Update(_ context.Context, id string, patch domain.ProjectPatch) error {
	return r.b.hit("projects.update")
}

func (r stubProjects) Delete(_ context.Context, id string) error {
	if err := r.b.hit("projects.delete"); err != nil {
		return err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var keep []domain.Project
	for _, p := range r.b.projects {
		if p.ID != id {
			keep = append(keep, p)
		}
	}
	r.b.projects = keep
	return nil
}

type stubUnits struct{ b *stubBackend }

func (r stubUnits) ListByProject(_ context.Context, projectID string) ([]domain.HousingUnit, error) {
	if err := r.b.hit("units.list"); err != nil {
		return nil, err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []domain.HousingUnit
	for _, u := range r.b.units {
		if u.ProjectID == projectID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r stubUnits) Insert(_ context.Context, u domain.HousingUnit) (*domain.HousingUnit, error) {
	if err := r.b.hit("units.insert"); err != nil {
		return nil, err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	u.ID = r.b.nextID("unit-")
	r.b.units = append(r.b.units, u)
	return &u, nil
}

func (r stubUnits) Update(_ context.Context, id string, patch domain.HousingUnitPatch) error {
	if err := r.b.hit("units.update"); err != nil {
		return err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	for i, u := range r.b.units {
		if u.ID == id {
			r.b.units[i] = patch.Apply(u)
		}
	}
	return nil
}

func (r stubUnits) Delete(_ context.Context, id string) error {
	return r.b.hit("units.delete")
}

type stubTxs struct{ b *stubBackend }

func (r stubTxs) List(_ context.Context) ([]domain.Transaction, error) {
	if err := r.b.hit("transactions.list"); err != nil {
		return nil, err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	return append([]domain.Transaction(nil), r.b.txs...), nil
}

func (r stubTxs) Insert(_ context.Context, t domain.Transaction) (*domain.Transaction, error) {
	if err := r.b.hit("transactions.insert"); err != nil {
		return nil, err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	t.ID = r.b.nextID("tx-")
	r.b.txs = append(r.b.txs, t)
	return &t, nil
}

func (r stubTxs) Update(_ context.Context, id string, patch domain.TransactionPatch) error {
	return r.b.hit("transactions.update")
}

func (r stubTxs) Delete(_ context.Context, id string) error {
	return r.b.hit("transactions.delete")
}

const stubCDN = "https://cdn.test/"

type stubStorage struct{ b *stubBackend }

func (s stubStorage) Upload(_ context.Context, bucket, path, _ string, r io.Reader) (string, error) {
	if err := s.b.hit("storage.upload"); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.objects[bucket+"/"+path] = data
	return path, nil
}

func (s stubStorage) PublicURL(bucket, path string) string {
	return stubCDN + bucket + "/" + path
}

func (s stubStorage) PathFromURL(bucket, url string) (string, bool) {
	prefix := stubCDN + bucket + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

func (s stubStorage) Remove(_ context.Context, bucket, path string) error {
	if err := s.b.hit("storage.remove"); err != nil {
		return err
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	delete(s.b.objects, bucket+"/"+path)
	return nil
}

type stubProcedures struct{ b *stubBackend }

func (p stubProcedures) Call(_ context.Context, name string, args map[string]any) (json.RawMessage, error) {
	if err := p.b.hit("rpc." + name); err != nil {
		return nil, err
	}
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	p.b.procedures = append(p.b.procedures, procCall{name: name, args: args})
	return json.RawMessage(`null`), nil
}

// ---------------------------------------------------------------------------
// In-memory stores
// ---------------------------------------------------------------------------

type stubViewStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newStubViewStore() *stubViewStore {
	return &stubViewStore{data: make(map[string][]byte)}
}

func (s *stubViewStore) Get(_ context.Context, sid, screen string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[sid+"/"+screen]
	if !ok {
		return nil, domain.ErrViewNotFound
	}
	return raw, nil
}

func (s *stubViewStore) Set(_ context.Context, sid, screen string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sid+"/"+screen] = data
	return nil
}

func (s *stubViewStore) Update(_ context.Context, sid, screen string, fn func([]byte) ([]byte, error)) error {
	s.mu.Lock()
	cur := s.data[sid+"/"+screen]
	s.mu.Unlock()

	next, err := fn(cur)
	if err != nil || next == nil {
		return err
	}
	s.mu.Lock()
	s.data[sid+"/"+screen] = next
	s.mu.Unlock()
	return nil
}

func (s *stubViewStore) Clear(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.data {
		if strings.HasPrefix(k, sid+"/") {
			delete(s.data, k)
		}
	}
	return nil
}

type stubSessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: make(map[string]domain.Session)}
}

func (s *stubSessionStore) Save(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *stubSessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &sess, nil
}

func (s *stubSessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// stubScheduler runs nothing; tests inspect the scheduled keys and can run
// the tasks by hand.
type stubScheduler struct {
	keys  []string
	tasks []func(context.Context) error
}

func (s *stubScheduler) Schedule(key string, run func(ctx context.Context) error) {
	s.keys = append(s.keys, key)
	s.tasks = append(s.tasks, run)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func signedIn(role domain.Role) identity.Identity {
	return identity.Identity{
		State: identity.Authenticated,
		Session: &domain.Session{
			ID:   "sess-1",
			Auth: domain.AuthSession{AccessToken: "tok", User: domain.AuthUser{ID: "me"}},
		},
		Profile: &domain.Profile{ID: "me", RUT: "11.111.111-1", FullName: "Yo", Role: role, Active: true},
	}
}
