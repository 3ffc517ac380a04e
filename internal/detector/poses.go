package detector

// Reference poses for a right hand with the wrist at (0.5, 0.8), facing the
// camera. They seed the built-in gesture templates and drive tests.

func pose(points [NumLandmarks]Point3D) HandLandmarks {
	return HandLandmarks{Points: points, Handedness: "Right", Score: 0.95}
}

var (
	foldedThumb = [4]Point3D{
		{X: 0.55, Y: 0.76, Z: -0.01}, {X: 0.59, Y: 0.72, Z: -0.03},
		{X: 0.57, Y: 0.68, Z: -0.05}, {X: 0.52, Y: 0.67, Z: -0.06},
	}
	curledIndex = [4]Point3D{
		{X: 0.55, Y: 0.70, Z: -0.02}, {X: 0.56, Y: 0.64, Z: -0.05},
		{X: 0.54, Y: 0.68, Z: -0.06}, {X: 0.53, Y: 0.72, Z: -0.04},
	}
	curledMiddle = [4]Point3D{
		{X: 0.50, Y: 0.68, Z: -0.02}, {X: 0.51, Y: 0.62, Z: -0.05},
		{X: 0.49, Y: 0.66, Z: -0.06}, {X: 0.48, Y: 0.71, Z: -0.04},
	}
	curledRing = [4]Point3D{
		{X: 0.45, Y: 0.70, Z: -0.02}, {X: 0.46, Y: 0.64, Z: -0.05},
		{X: 0.44, Y: 0.68, Z: -0.06}, {X: 0.44, Y: 0.72, Z: -0.04},
	}
	curledPinky = [4]Point3D{
		{X: 0.40, Y: 0.72, Z: -0.02}, {X: 0.41, Y: 0.67, Z: -0.04},
		{X: 0.40, Y: 0.70, Z: -0.05}, {X: 0.40, Y: 0.73, Z: -0.03},
	}
	extendedIndex = [4]Point3D{
		{X: 0.55, Y: 0.68}, {X: 0.57, Y: 0.55}, {X: 0.58, Y: 0.45}, {X: 0.58, Y: 0.35},
	}
	extendedMiddle = [4]Point3D{
		{X: 0.50, Y: 0.66}, {X: 0.50, Y: 0.52}, {X: 0.50, Y: 0.40}, {X: 0.50, Y: 0.28},
	}
	extendedRing = [4]Point3D{
		{X: 0.45, Y: 0.68}, {X: 0.43, Y: 0.55}, {X: 0.42, Y: 0.45}, {X: 0.42, Y: 0.35},
	}
	extendedPinky = [4]Point3D{
		{X: 0.40, Y: 0.70}, {X: 0.37, Y: 0.60}, {X: 0.35, Y: 0.50}, {X: 0.34, Y: 0.42},
	}
)

func assemble(thumb, index, middle, ring, pinky [4]Point3D) HandLandmarks {
	var p [NumLandmarks]Point3D
	p[Wrist] = Point3D{X: 0.5, Y: 0.8}
	copy(p[ThumbCMC:], thumb[:])
	copy(p[IndexMCP:], index[:])
	copy(p[MiddleMCP:], middle[:])
	copy(p[RingMCP:], ring[:])
	copy(p[PinkyMCP:], pinky[:])
	return pose(p)
}

// OpenPalmLandmarks is a flat hand with every finger extended.
func OpenPalmLandmarks() HandLandmarks {
	thumb := [4]Point3D{
		{X: 0.55, Y: 0.75, Z: 0.02}, {X: 0.62, Y: 0.70, Z: 0.03},
		{X: 0.68, Y: 0.65, Z: 0.03}, {X: 0.73, Y: 0.60, Z: 0.03},
	}
	return assemble(thumb, extendedIndex, extendedMiddle, extendedRing, extendedPinky)
}

// ClosedFistLandmarks has every finger curled and the thumb folded across.
func ClosedFistLandmarks() HandLandmarks {
	return assemble(foldedThumb, curledIndex, curledMiddle, curledRing, curledPinky)
}

// PointingLandmarks extends only the index finger.
func PointingLandmarks() HandLandmarks {
	index := [4]Point3D{
		{X: 0.55, Y: 0.68}, {X: 0.56, Y: 0.55}, {X: 0.57, Y: 0.45}, {X: 0.57, Y: 0.35},
	}
	return assemble(foldedThumb, index, curledMiddle, curledRing, curledPinky)
}

// PinchLandmarks touches the thumb and index tips with the other fingers
// extended.
func PinchLandmarks() HandLandmarks {
	thumb := [4]Point3D{
		{X: 0.55, Y: 0.75, Z: 0.02}, {X: 0.61, Y: 0.70, Z: 0.02},
		{X: 0.64, Y: 0.64, Z: 0.01}, {X: 0.63, Y: 0.58, Z: -0.01},
	}
	index := [4]Point3D{
		{X: 0.55, Y: 0.68}, {X: 0.59, Y: 0.60, Z: -0.01},
		{X: 0.62, Y: 0.56, Z: -0.01}, {X: 0.63, Y: 0.57, Z: -0.01},
	}
	return assemble(thumb, index, extendedMiddle, extendedRing, extendedPinky)
}

// ThumbsUpLandmarks is not one of the tracked gestures; it classifies as no
// gesture.
func ThumbsUpLandmarks() HandLandmarks {
	thumb := [4]Point3D{
		{X: 0.55, Y: 0.75}, {X: 0.58, Y: 0.65}, {X: 0.58, Y: 0.50}, {X: 0.58, Y: 0.35},
	}
	index := [4]Point3D{
		{X: 0.55, Y: 0.70, Z: -0.02}, {X: 0.55, Y: 0.68, Z: -0.05},
		{X: 0.52, Y: 0.70, Z: -0.04}, {X: 0.50, Y: 0.72, Z: -0.02},
	}
	middle := [4]Point3D{
		{X: 0.50, Y: 0.68, Z: -0.02}, {X: 0.50, Y: 0.66, Z: -0.05},
		{X: 0.47, Y: 0.68, Z: -0.04}, {X: 0.45, Y: 0.70, Z: -0.02},
	}
	ring := [4]Point3D{
		{X: 0.45, Y: 0.70, Z: -0.02}, {X: 0.45, Y: 0.68, Z: -0.05},
		{X: 0.42, Y: 0.70, Z: -0.04}, {X: 0.40, Y: 0.72, Z: -0.02},
	}
	pinky := [4]Point3D{
		{X: 0.40, Y: 0.72, Z: -0.02}, {X: 0.40, Y: 0.70, Z: -0.05},
		{X: 0.37, Y: 0.72, Z: -0.04}, {X: 0.35, Y: 0.74, Z: -0.02},
	}
	return assemble(thumb, index, middle, ring, pinky)
}
