package state

import "context"

// DefaultStoreFactory is the default implementation of StoreFactory.
type DefaultStoreFactory struct{}

// StoreFactory creates the appropriate store implementation.
type StoreFactory interface {
	// Create returns a store implementation based on the given configuration.
	Create(ctx context.Context, config Config) (VideoStore, error)
}

// Create returns a store implementation based on the configuration.
// DynamoDB is currently the only backend.
func (f *DefaultStoreFactory) Create(ctx context.Context, config Config) (VideoStore, error) {
	return NewDynamoStore(ctx, config)
}
