package handlers

// Registry holds the ordered, fixed catalog of handlers. Order is not
// semantically significant but is stable, so dispatch reports are
// deterministic.
type Registry struct {
	handlers []Handler
	byKey    map[string]Handler
}

// NewRegistry builds the registry with the full handler catalog.
func NewRegistry(deps Deps) *Registry {
	return NewRegistryWith(
		NewLeadToClient(deps),
		NewClientOnboarding(deps),
		NewProjectLifecycle(deps),
		NewInvoiceTracking(deps),
		NewContractRenewal(deps),
		NewInternalHealth(deps),
	)
}

// NewRegistryWith builds a registry from an explicit handler list. Used by
// tests that need a reduced or synthetic catalog.
func NewRegistryWith(list ...Handler) *Registry {
	byKey := make(map[string]Handler, len(list))
	for _, h := range list {
		byKey[h.Key()] = h
	}

	return &Registry{handlers: list, byKey: byKey}
}

// Handlers returns the catalog in registry order.
func (r *Registry) Handlers() []Handler {
	return r.handlers
}

// Get returns the handler registered under key, if any.
func (r *Registry) Get(key string) (Handler, bool) {
	h, exists := r.byKey[key]

	return h, exists
}

// Keys returns all handler keys in registry order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.handlers))
	for _, h := range r.handlers {
		keys = append(keys, h.Key())
	}

	return keys
}
