package renderer

// resourceStack owns GPU objects in creation order and releases them in
// reverse, so that every object is destroyed before the objects it was built
// from. Releasing twice is a no-op.
type resourceStack struct {
	objects []Object
}

func (s *resourceStack) push(o Object) {
	s.objects = append(s.objects, o)
}

func (s *resourceStack) release() {
	for i := len(s.objects) - 1; i >= 0; i-- {
		s.objects[i].Destroy()
		s.objects[i] = nil
	}
	s.objects = nil
}

func (s *resourceStack) len() int {
	return len(s.objects)
}
