package repofake

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/andresl123/food-rescue-live-sub000/internal/errors"
	"github.com/andresl123/food-rescue-live-sub000/users"
)

var _ users.PrincipalRepo = (*FakePrincipalRepo)(nil)

// FakePrincipalRepo is a thread-safe in-memory principal repository
type FakePrincipalRepo struct {
	principals  map[string]*users.Principal
	emailIds    map[string]string // email to principal id
	externalIds map[string]string // external subject to principal id
	lock        sync.RWMutex
}

func NewFakePrincipalRepo() *FakePrincipalRepo {
	return &FakePrincipalRepo{
		principals:  make(map[string]*users.Principal),
		emailIds:    make(map[string]string),
		externalIds: make(map[string]string),
	}
}

func (pr *FakePrincipalRepo) Upsert(principal *users.Principal) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	if principal.ID == "" {
		principal.ID = uuid.New().String()
	}

	copied := *principal
	pr.principals[copied.ID] = &copied
	pr.emailIds[copied.Email] = copied.ID
	if copied.ExternalID != "" {
		pr.externalIds[copied.ExternalID] = copied.ID
	}
	return nil
}

func (pr *FakePrincipalRepo) GetByEmail(email string) (*users.Principal, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	id, ok := pr.emailIds[email]
	if !ok {
		return nil, errors.ErrPrincipalNotFound
	}
	return pr.get(id)
}

func (pr *FakePrincipalRepo) GetByID(id string) (*users.Principal, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()
	return pr.get(id)
}

func (pr *FakePrincipalRepo) GetByExternalID(externalID string) (*users.Principal, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	id, ok := pr.externalIds[externalID]
	if !ok {
		return nil, errors.ErrPrincipalNotFound
	}
	return pr.get(id)
}

func (pr *FakePrincipalRepo) SetStatus(id string, status users.AccountStatus) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	principal, ok := pr.principals[id]
	if !ok {
		return errors.ErrPrincipalNotFound
	}
	principal.Status = status
	return nil
}

func (pr *FakePrincipalRepo) List(offset, limit int) ([]*users.Principal, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	ids := make([]string, 0, len(pr.principals))
	for id := range pr.principals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if offset >= len(ids) {
		return []*users.Principal{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(ids) {
		end = len(ids)
	}

	listed := make([]*users.Principal, 0, end-offset)
	for _, id := range ids[offset:end] {
		copied := *pr.principals[id]
		listed = append(listed, &copied)
	}
	return listed, nil
}

// get assumes the lock is already held
func (pr *FakePrincipalRepo) get(id string) (*users.Principal, error) {
	principal, ok := pr.principals[id]
	if !ok {
		return nil, errors.ErrPrincipalNotFound
	}
	copied := *principal
	return &copied, nil
}
