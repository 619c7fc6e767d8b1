package network

// Direction is the ordered (source, destination) pair of a transfer
type Direction struct {
	Source      Network
	Destination Network
}

// DefaultDirection goes from the first configured network to the second
func DefaultDirection(r *Registry) Direction {
	return Direction{Source: r.networks[0], Destination: r.networks[1]}
}

// SetSource changes the source network. Picking the current destination
// moves the destination to the first other network.
func (d *Direction) SetSource(r *Registry, n Network) {
	if n.ChainID == d.Destination.ChainID {
		others := r.Others(n.ChainID)
		if len(others) == 0 {
			return
		}
		d.Destination = others[0]
	}
	d.Source = n
}

// SetDestination changes the destination network
func (d *Direction) SetDestination(n Network) error {
	if n.ChainID == d.Source.ChainID {
		return ErrSameNetwork
	}
	d.Destination = n
	return nil
}

// Validate checks that the two ends differ
func (d Direction) Validate() error {
	if d.Source.ChainID == d.Destination.ChainID {
		return ErrSameNetwork
	}
	return nil
}

func (d Direction) String() string {
	return d.Source.Name + " -> " + d.Destination.Name
}
