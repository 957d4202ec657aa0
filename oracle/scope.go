package oracle

// frames is the constraint stack shared by the backends.
// stack[0] is the base scope and is never popped.
type frames[T any] struct {
	stack [][]T
}

func newFrames[T any]() frames[T] {
	return frames[T]{stack: make([][]T, 1)}
}

func (f *frames[T]) push() {
	f.stack = append(f.stack, nil)
}

func (f *frames[T]) pop() error {
	if len(f.stack) <= 1 {
		return ErrPopWithoutPush
	}
	f.stack = f.stack[:len(f.stack)-1]
	return nil
}

func (f *frames[T]) add(x T) {
	top := len(f.stack) - 1
	f.stack[top] = append(f.stack[top], x)
}

func (f *frames[T]) depth() int {
	return len(f.stack) - 1
}

// all returns every constraint in every open scope, base first.
func (f *frames[T]) all() []T {
	var n int
	for _, fr := range f.stack {
		n += len(fr)
	}
	out := make([]T, 0, n)
	for _, fr := range f.stack {
		out = append(out, fr...)
	}
	return out
}
