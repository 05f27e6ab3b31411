package detect

// SetBeforeStage installs a hook run ahead of every stage of d.
func SetBeforeStage(d *Detector, f func(s Stage, filename string)) {
	d.beforeStage = f
}

func TruncateUTF8(content []byte, n int) []byte { return truncateUTF8(content, n) }
