package types

// Stream families encoded in the first tag segment.
const (
	FamilyCEX = "cex"
	FamilyDEX = "dex"

	// WildcardExchange asks the server to pick the first exchange, in
	// preference order, able to serve the requested symbol and interval.
	WildcardExchange = "*"

	// DefaultPool selects the venue's aggregate pool view.
	DefaultPool = "all"
)

// Tag returns the stream tag for the payload, synthesizing one from the
// loose fields when no explicit tag was sent. A tag always contains at
// least one colon.
func (d RequestData) TagFor() (string, error) {
	tag := d.Tag
	if tag == "" {
		interval := d.Interval
		if interval == "" {
			interval = IntervalSmallest.String()
		}
		switch {
		case d.Symbol != "":
			tag = FamilyCEX + ":" + d.Exchange + ":" + d.Symbol + ":" + interval
		case d.Chain != "":
			pool := d.Pool
			if pool == "" {
				pool = DefaultPool
			}
			tag = FamilyDEX + ":" + d.Chain + ":" + d.Address + ":" + pool + ":" + interval
		default:
			return "", Validationf("invalid tag")
		}
	}
	for i := 0; i < len(tag); i++ {
		if tag[i] == ':' {
			return tag, nil
		}
	}
	return "", Validationf("invalid tag %s", tag)
}
