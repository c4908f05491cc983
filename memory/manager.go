package memory

//go:generate mockgen -source manager.go -destination ./mocks/manager.go

// Manager hands out and frees allocations. Allocate returns an error wrapping
// common.ErrorOutOfDeviceMemory when the request cannot be satisfied.
type Manager interface {
	Allocate(properties AllocationProperties) (*Allocation, error)
	Free(allocation *Allocation)
}

// MemoryCallbackOptions are informative callbacks invoked after a HostManager allocates or frees
type MemoryCallbackOptions struct {
	Allocate func(manager Manager, allocation *Allocation, userData any)
	Free     func(manager Manager, allocation *Allocation, userData any)
	UserData any
}
