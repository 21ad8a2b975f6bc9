package detection

// Pose landmark indices following the 33-point BlazePose convention.
// Every provider reports keypoints in this schema regardless of the
// model it runs.
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// Keypoint is a body landmark in normalized image coordinates.
// X and Y are fractions of the image width and height.
type Keypoint struct {
	Index      int     `json:"index"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// FindKeypoint returns the keypoint with the given schema index
func FindKeypoint(keypoints []Keypoint, index int) (Keypoint, bool) {
	for _, kp := range keypoints {
		if kp.Index == index {
			return kp, true
		}
	}
	return Keypoint{}, false
}

// Shoulders returns the left and right shoulder keypoints. ok is false
// when either one is missing.
func Shoulders(keypoints []Keypoint) (left, right Keypoint, ok bool) {
	left, lok := FindKeypoint(keypoints, LeftShoulder)
	right, rok := FindKeypoint(keypoints, RightShoulder)
	return left, right, lok && rok
}

// cocoToPose maps OpenPose COCO part indices (18 parts) to the pose schema
var cocoToPose = [18]int{
	Nose,          // 0 nose
	-1,            // 1 neck, no counterpart
	RightShoulder, // 2
	RightElbow,    // 3
	RightWrist,    // 4
	LeftShoulder,  // 5
	LeftElbow,     // 6
	LeftWrist,     // 7
	RightHip,      // 8
	RightKnee,     // 9
	RightAnkle,    // 10
	LeftHip,       // 11
	LeftKnee,      // 12
	LeftAnkle,     // 13
	RightEye,      // 14
	LeftEye,       // 15
	RightEar,      // 16
	LeftEar,       // 17
}
