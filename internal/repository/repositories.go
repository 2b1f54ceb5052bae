package repository

// Repositories is a container for all repository instances.
type Repositories struct {
	User *UserRepository
}

// NewRepositories builds every repository over db, usually the pool held
// by database.Database.
func NewRepositories(db DBTX) *Repositories {
	return &Repositories{
		User: NewUserRepository(db),
	}
}
