package parameter

// Setting is one named entry of a discrete parameter. Value is the integer the
// device uses for this entry.
type Setting struct {
	Name  string `yaml:"name" json:"name"`
	Value int    `yaml:"value" json:"value"`
}

// Settings is the ordered setting table of a discrete parameter. Slice order
// is the UI index order.
type Settings []Setting

// Name returns the name of the setting at index.
func (s Settings) Name(index int) (string, bool) {
	if index < 0 || index >= len(s) {
		return "", false
	}
	return s[index].Name, true
}

// Value returns the device value of the setting at index.
func (s Settings) Value(index int) (int, bool) {
	if index < 0 || index >= len(s) {
		return 0, false
	}
	return s[index].Value, true
}

// IndexOf returns the index of the setting called name, or -1.
func (s Settings) IndexOf(name string) int {
	for i, setting := range s {
		if setting.Name == name {
			return i
		}
	}
	return -1
}

// MaxIndex returns the highest valid index, or -1 for an empty table.
func (s Settings) MaxIndex() int {
	return len(s) - 1
}

// FindNearest returns the index of the setting whose device value is closest
// to value. An exact match returns immediately; otherwise the first entry with
// the smallest absolute gap wins. An empty table returns 0.
func (s Settings) FindNearest(value int) int {
	nearest := 0
	smallestGap := -1

	for i, setting := range s {
		gap := value - setting.Value
		if gap < 0 {
			gap = -gap
		}

		if gap == 0 {
			return i
		}
		if smallestGap < 0 || gap < smallestGap {
			smallestGap = gap
			nearest = i
		}
	}

	return nearest
}
