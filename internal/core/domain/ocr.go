package domain

// OCR contracts. No OCR engine ships with this service; the shapes are kept
// so an external recognizer can report results through the same API.

type OcrOptions struct {
	Language string `json:"language,omitempty"`
	PSM      int    `json:"psm,omitempty"`
	OEM      int    `json:"oem,omitempty"`
}

type OcrJobInput struct {
	ID       string      `json:"id"`
	FilePath string      `json:"filePath"`
	Language string      `json:"language,omitempty"`
	Options  *OcrOptions `json:"options,omitempty"`
}

type OcrBoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type OcrWord struct {
	Text       string         `json:"text"`
	Confidence float64        `json:"confidence"`
	BBox       OcrBoundingBox `json:"bbox"`
}

type OcrMetadata struct {
	Pages          int    `json:"pages"`
	ProcessingTime int64  `json:"processingTime"`
	Language       string `json:"language"`
}

type OcrJobResult struct {
	ID         string      `json:"id"`
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Language   string      `json:"language,omitempty"`
	Words      []OcrWord   `json:"words"`
	Metadata   OcrMetadata `json:"metadata"`
}

type OcrQualityMetrics struct {
	AverageConfidence  float64  `json:"averageConfidence"`
	WordCount          int      `json:"wordCount"`
	LowConfidenceWords int      `json:"lowConfidenceWords"`
	QualityScore       float64  `json:"qualityScore"`
	OcrAccuracy        *float64 `json:"ocrAccuracy,omitempty"`
}

// QualityMetrics summarizes word confidences; words below threshold count as
// low confidence.
func (r OcrJobResult) QualityMetrics(threshold float64) OcrQualityMetrics {
	m := OcrQualityMetrics{WordCount: len(r.Words)}
	if len(r.Words) == 0 {
		return m
	}
	var sum float64
	for _, w := range r.Words {
		sum += w.Confidence
		if w.Confidence < threshold {
			m.LowConfidenceWords++
		}
	}
	m.AverageConfidence = sum / float64(len(r.Words))
	m.QualityScore = ClampConfidence(m.AverageConfidence * (1 - float64(m.LowConfidenceWords)/float64(len(r.Words))))
	return m
}
