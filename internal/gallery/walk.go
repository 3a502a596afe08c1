package gallery

import "fmt"

// LoadAll drives c synchronously from the first page until the list is
// exhausted or maxPages pages have been applied (0 means no limit).
func LoadAll(c *Controller, maxPages int) error {
	req, ok := c.InitialLoad()
	if !ok {
		return ErrClosed
	}
	pages := 0
	for {
		c.Apply(req.Fetch())
		if f, failed := c.Failure(); failed {
			return fmt.Errorf("load clips at offset %d: %w", f.Offset, f.Err)
		}
		if c.Closed() {
			return ErrClosed
		}
		pages++
		if maxPages > 0 && pages >= maxPages {
			return nil
		}
		req, ok = c.LoadMore()
		if !ok {
			return nil
		}
	}
}
