package template

// Section is one titled block of a template. Order values form a total order
// within the parent template; ids are unique within it.
type Section struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}

// Content is the persisted body of a template: an ordered list of sections
// plus a derived cache of the placeholder names found in them.
type Content struct {
	Sections  []Section `json:"sections"`
	Variables []string  `json:"variables,omitempty"`
}

// FlattenText joins section titles and bodies into the plain-text form handed
// to the generation prompt as a structural guide.
func (c Content) FlattenText() string {
	var out []byte
	for i, sec := range c.Sections {
		if i > 0 {
			out = append(out, '\n', '\n')
		}
		out = append(out, sec.Title...)
		out = append(out, '\n')
		out = append(out, sec.Content...)
	}
	return string(out)
}
