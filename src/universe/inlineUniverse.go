package universe

import "go.uber.org/zap"

/*
	Inline Universe implementation
	the grass regrowth sweep is folded into the tick command, one unit of work per period
*/
type InlineUniverse struct {
	*BaseUniverse
}

func NewInlineUniverse(o *Options, stateCh chan Status, log *zap.Logger) (Universe, error) {
	bu, err := newBaseUniverse(o, stateCh, log)
	if err != nil {
		return nil, err
	}
	iu := InlineUniverse{BaseUniverse: bu}
	iu.foldSweep = true
	iu.options.Advanced["engine"] = "inline"
	iu.start()
	return &iu, nil
}
