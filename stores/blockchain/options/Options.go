package options

// StoreBlockOptions modify how a block is appended to the main chain.
type StoreBlockOptions struct {
	// RemoveFromTempTable drops the block from the temp area once it is on the main chain.
	RemoveFromTempTable bool
}

type StoreBlockOption func(*StoreBlockOptions)

func WithRemoveFromTempTable(b bool) StoreBlockOption {
	return func(opts *StoreBlockOptions) {
		opts.RemoveFromTempTable = b
	}
}

func ProcessStoreBlockOptions(opts ...StoreBlockOption) *StoreBlockOptions {
	options := &StoreBlockOptions{}

	for _, opt := range opts {
		opt(options)
	}

	return options
}

// DeleteBlockOptions modify how the tip is removed from the main chain.
type DeleteBlockOptions struct {
	// SaveTempBlock stages the removed block in the temp area.
	SaveTempBlock bool
}

type DeleteBlockOption func(*DeleteBlockOptions)

func WithSaveTempBlock(b bool) DeleteBlockOption {
	return func(opts *DeleteBlockOptions) {
		opts.SaveTempBlock = b
	}
}

func ProcessDeleteBlockOptions(opts ...DeleteBlockOption) *DeleteBlockOptions {
	options := &DeleteBlockOptions{}

	for _, opt := range opts {
		opt(options)
	}

	return options
}
