package display

type Led struct {
	Red   byte
	Green byte
	Blue  byte
}

var (
	Off    = Led{}
	Red    = Led{Red: 255}
	Green  = Led{Green: 255}
	Blue   = Led{Blue: 255}
	Orange = Led{Red: 255, Green: 165}
)

// True if all components are zero, false otherwise
func (s Led) IsEmpty() bool {
	return s.Red == 0 && s.Green == 0 && s.Blue == 0
}

// Scale dims every component to brightness/255.
func (s Led) Scale(brightness byte) Led {
	b := uint16(brightness)
	return Led{
		Red:   byte(uint16(s.Red) * b / 255),
		Green: byte(uint16(s.Green) * b / 255),
		Blue:  byte(uint16(s.Blue) * b / 255),
	}
}

// Local Variables:
// compile-command: "cd .. && go build"
// End:
