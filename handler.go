package chunk

// Handler knows how to handle the chunks received from a chunker
type Handler interface {
	HandleChunks(<-chan *Chunk, <-chan error) error
}

// ChunkFunc knows how to do something with a chunk, and returns an error if
// that something fails.
type ChunkFunc func(*Chunk) error

var _ Handler = &FunctionHandler{}

// FunctionHandler calls fn for every chunk in arrival order and stops at the
// first error, whether it comes from fn or from the chunker.
type FunctionHandler struct {
	fn ChunkFunc
}

func (f *FunctionHandler) HandleChunks(chunks <-chan *Chunk, errs <-chan error) error {
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				// an error is always sent before chunks is closed
				select {
				case err := <-errs:
					return err
				default:
					return nil
				}
			}
			if err := f.fn(chunk); err != nil {
				return err
			}
		case err := <-errs:
			return err
		}
	}
}

func NewFunctionHandler(fn ChunkFunc) *FunctionHandler {
	return &FunctionHandler{fn: fn}
}
