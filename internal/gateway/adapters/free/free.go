package free

const Name = "free"

// Gateway backs complimentary memberships. It has no remote state and
// cannot cancel anything.
type Gateway struct{}

func New() *Gateway { return &Gateway{} }

func (g *Gateway) Name() string { return Name }
