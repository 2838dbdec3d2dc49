package users

type PrincipalRepo interface {
	Upsert(principal *Principal) error
	GetByEmail(email string) (*Principal, error)
	GetByID(id string) (*Principal, error)
	GetByExternalID(externalID string) (*Principal, error)
	SetStatus(id string, status AccountStatus) error
	List(offset, limit int) ([]*Principal, error)
}
