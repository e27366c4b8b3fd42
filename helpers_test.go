package occplot

// testBinning is a 4x4 grid of unit cells over [0,4]x[0,4].
var testBinning = Binning{NX: 4, NY: 4, XMin: 0, XMax: 4, YMin: 0, YMax: 4}

// testSelection keeps the depth and core cuts but disables the ROI.
var testSelection = Selection{ZMin: 80, RequireCore: true}

// hit returns a core photon deep enough to pass the depth cut.
func hit(x, y, t float64) PhotonHit {
	return PhotonHit{X: x, Y: y, Z: 100, T: t, IsCore: true}
}
