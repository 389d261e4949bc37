package decoder

import "github.com/b-open-io/1sat-wallet-toolbox/txo"

// Deps carries the injectable I/O collaborators the summarize phases of
// Sigma, Origin, and Bsv21 need. Every field is optional; a decoder whose
// dependency is nil skips the I/O-bearing part of its summarize step.
type Deps struct {
	Recoverer AddressRecoverer
	OrdFS     ordfsClient
	Overlay   bsv21Client
}

// Registry returns the ten fixed-order decoders as an ordered vector, the
// shape spec §9's design notes call for in place of a name-keyed map: Fund,
// Lock, Inscription, Sigma, Map, Origin, Bsv21, OrdLock, OpNS, Cosign.
func Registry(deps Deps) []txo.Decoder {
	return []txo.Decoder{
		Fund{},
		Lock{},
		Inscription{},
		Sigma{Recoverer: deps.Recoverer},
		Map{},
		Origin{OrdFS: deps.OrdFS},
		Bsv21{Overlay: deps.Overlay},
		OrdLock{},
		OpNS{},
		Cosign{},
	}
}
