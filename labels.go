package gamepad

import "strconv"

// ButtonLabels maps standard-gamepad button indices to display names. The
// tables exist for presentation code only; nothing in the session consults
// them.
var ButtonLabels = map[int]string{
	0:  "a",
	1:  "b",
	2:  "x",
	3:  "y",
	4:  "lb",
	5:  "rb",
	6:  "lt",
	7:  "rt",
	8:  "select",
	9:  "start",
	10: "l3",
	11: "r3",
	12: "up",
	13: "down",
	14: "left",
	15: "right",
	16: "home",
}

// AxisLabels maps standard-gamepad axis indices to display names.
var AxisLabels = map[int]string{
	0: "left_x",
	1: "left_y",
	2: "right_x",
	3: "right_y",
}

func ButtonLabel(index int) string {
	if label, ok := ButtonLabels[index]; ok {
		return label
	}
	return "button " + strconv.Itoa(index)
}

func AxisLabel(index int) string {
	if label, ok := AxisLabels[index]; ok {
		return label
	}
	return "axis " + strconv.Itoa(index)
}
