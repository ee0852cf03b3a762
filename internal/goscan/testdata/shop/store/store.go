package store

// Repository reads records.
type Repository interface {
	Find(id string) (string, error)
}

// RepositoryBase holds shared connection state.
type RepositoryBase struct {
	conn string
}

func (b *RepositoryBase) Conn() string { return b.conn }

// SQLRepository is the default repository.
//
//di:Service(ServiceLifetime.Scoped)
type SQLRepository struct {
	RepositoryBase
}

func (r *SQLRepository) Find(id string) (string, error) { return id, nil }

// NewSQLRepository opens a repository on the named connection.
//
//di:FromKeyedServices("primary") on conn
func NewSQLRepository(conn string, retries int) *SQLRepository {
	return &SQLRepository{RepositoryBase{conn: conn}}
}

type memoryRepository struct{}

func (memoryRepository) Find(id string) (string, error) { return "", nil }
