package core

import (
	"context"
	"strings"
)

const disclaimer = "⚠️ This is general information. Consult healthcare professionals for personalized advice."

type topic struct {
	tag      string
	keywords []string
	text     string
	sources  [2]SourceLink
}

// Order matters: the first topic with a matching keyword wins.
var topics = []topic{
	{
		tag:      "heart",
		keywords: []string{"chest pain", "heart", "palpitation", "blood pressure", "hypertension", "cholesterol"},
		text: "Heart and circulation:\n\n" +
			"POSSIBLE CAUSES:\n• Muscle strain or acid reflux\n• High blood pressure or cholesterol\n• Angina or other heart conditions\n\n" +
			"WHAT TO DO:\n• Stop activity and rest\n• Track blood pressure and heart rate\n• Limit salt, alcohol and tobacco\n\n" +
			"SEEK MEDICAL HELP IF:\n• Pain spreads to the arm, jaw or back\n• Pain comes with sweating, nausea or shortness of breath\n• Symptoms last more than a few minutes",
		sources: [2]SourceLink{
			{Title: "Heart disease - Mayo Clinic", URL: "https://www.mayoclinic.org/diseases-conditions/heart-disease/symptoms-causes/syc-20353118"},
			{Title: "Chest pain - MedlinePlus", URL: "https://medlineplus.gov/ency/article/003079.htm"},
		},
	},
	{
		tag:      "diabetes",
		keywords: []string{"diabetes", "diabetic", "blood sugar", "glucose", "insulin"},
		text: "Diabetes overview:\n\n" +
			"COMMON SYMPTOMS:\n• Increased thirst and frequent urination\n• Unexplained weight loss\n• Fatigue and blurred vision\n• Slow-healing sores\n\n" +
			"MANAGEMENT:\n• Monitor blood glucose as advised\n• Balanced diet with controlled carbohydrates\n• Regular physical activity\n• Take medication or insulin as prescribed\n\n" +
			"SEEK MEDICAL HELP IF:\n• Blood sugar stays very high or very low\n• Confusion, fruity breath or rapid breathing",
		sources: [2]SourceLink{
			{Title: "Diabetes - Mayo Clinic", URL: "https://www.mayoclinic.org/diseases-conditions/diabetes/symptoms-causes/syc-20371444"},
			{Title: "Diabetes - MedlinePlus", URL: "https://medlineplus.gov/diabetes.html"},
		},
	},
	{
		tag:      "headache",
		keywords: []string{"headache", "migraine", "head hurts", "head pain"},
		text: "Headache guidance:\n\n" +
			"POSSIBLE CAUSES:\n• Tension or stress\n• Dehydration or skipped meals\n• Poor sleep or eye strain\n• Migraine\n\n" +
			"WHAT TO DO:\n• Rest in a quiet, dark room\n• Drink water\n• Over-the-counter pain relievers if appropriate\n• Apply a cool or warm compress\n\n" +
			"SEEK MEDICAL HELP IF:\n• Sudden, severe headache\n• Headache with fever and stiff neck\n• Headache after a head injury",
		sources: [2]SourceLink{
			{Title: "Headache - MedlinePlus", URL: "https://medlineplus.gov/headache.html"},
			{Title: "Migraine - Mayo Clinic", URL: "https://www.mayoclinic.org/diseases-conditions/migraine-headache/symptoms-causes/syc-20360201"},
		},
	},
	{
		tag:      "fever",
		keywords: []string{"fever", "temperature", "chills", "flu"},
		text: "Fever guidance:\n\n" +
			"POSSIBLE CAUSES:\n• Viral or bacterial infection\n• The body's immune response\n• Dehydration or overheating\n\n" +
			"WHAT TO DO:\n• Increase fluid intake\n• Rest in a cool environment\n• Monitor temperature regularly\n\n" +
			"SEEK MEDICAL HELP IF:\n• Fever above 103°F (39.4°C)\n• Fever lasts more than 3 days\n• Rash, confusion or trouble breathing",
		sources: [2]SourceLink{
			{Title: "Fever - MedlinePlus", URL: "https://medlineplus.gov/fever.html"},
			{Title: "Fever - Mayo Clinic", URL: "https://www.mayoclinic.org/diseases-conditions/fever/symptoms-causes/syc-20352759"},
		},
	},
	{
		tag:      "respiratory",
		keywords: []string{"cough", "cold", "sore throat", "wheeze", "shortness of breath", "asthma"},
		text: "Cough and breathing:\n\n" +
			"POSSIBLE CAUSES:\n• Respiratory infection\n• Allergies or irritants\n• Acid reflux or post-nasal drip\n• Asthma\n\n" +
			"WHAT TO DO:\n• Stay hydrated with warm liquids\n• Honey can soothe the throat\n• Avoid smoke and other irritants\n\n" +
			"SEEK MEDICAL HELP IF:\n• Difficulty breathing\n• Coughing up blood\n• Cough lasts more than 3 weeks",
		sources: [2]SourceLink{
			{Title: "Cough - MedlinePlus", URL: "https://medlineplus.gov/cough.html"},
			{Title: "Common cold - Mayo Clinic", URL: "https://www.mayoclinic.org/diseases-conditions/common-cold/symptoms-causes/syc-20351605"},
		},
	},
	{
		tag:      "digestive",
		keywords: []string{"nausea", "vomit", "stomach", "diarrhea", "constipation", "abdomen"},
		text: "Stomach and digestion:\n\n" +
			"POSSIBLE CAUSES:\n• Food poisoning or a stomach virus\n• Indigestion or reflux\n• Motion sickness, anxiety or medication side effects\n\n" +
			"WHAT TO DO:\n• Sip clear fluids\n• Eat bland foods in small amounts\n• Rest\n\n" +
			"SEEK MEDICAL HELP IF:\n• Signs of dehydration\n• Blood in vomit or stool\n• Severe or persistent abdominal pain",
		sources: [2]SourceLink{
			{Title: "Nausea and vomiting - MedlinePlus", URL: "https://medlineplus.gov/nauseaandvomiting.html"},
			{Title: "Digestive diseases - NIDDK", URL: "https://www.niddk.nih.gov/health-information/digestive-diseases"},
		},
	},
	{
		tag:      "sleep",
		keywords: []string{"sleep", "insomnia", "tired", "fatigue", "exhausted"},
		text: "Sleep and fatigue:\n\n" +
			"POSSIBLE CAUSES:\n• Irregular sleep schedule\n• Stress or anxiety\n• Caffeine or screens before bed\n• Anemia or thyroid problems\n\n" +
			"WHAT TO DO:\n• Keep a consistent bedtime\n• Limit caffeine after noon\n• Keep the bedroom dark and cool\n\n" +
			"SEEK MEDICAL HELP IF:\n• Fatigue lasts more than two weeks\n• Loud snoring or pauses in breathing during sleep",
		sources: [2]SourceLink{
			{Title: "Healthy sleep - MedlinePlus", URL: "https://medlineplus.gov/healthysleep.html"},
			{Title: "Insomnia - Mayo Clinic", URL: "https://www.mayoclinic.org/diseases-conditions/insomnia/symptoms-causes/syc-20355167"},
		},
	},
	{
		tag:      "mental-health",
		keywords: []string{"anxiety", "anxious", "stress", "depress", "panic"},
		text: "Mental health:\n\n" +
			"COMMON SIGNS:\n• Persistent worry or low mood\n• Trouble concentrating or sleeping\n• Loss of interest in usual activities\n\n" +
			"WHAT TO DO:\n• Talk to someone you trust\n• Regular exercise and sleep\n• Breathing and relaxation exercises\n\n" +
			"SEEK MEDICAL HELP IF:\n• Symptoms interfere with daily life\n• Thoughts of self-harm (contact a crisis line now)",
		sources: [2]SourceLink{
			{Title: "Anxiety - MedlinePlus", URL: "https://medlineplus.gov/anxiety.html"},
			{Title: "Mental health - NIMH", URL: "https://www.nimh.nih.gov/health/topics"},
		},
	},
	{
		tag:      "skin",
		keywords: []string{"rash", "itch", "skin", "hives", "eczema"},
		text: "Skin concerns:\n\n" +
			"POSSIBLE CAUSES:\n• Allergic reaction or contact irritant\n• Eczema or dry skin\n• Viral or fungal infection\n\n" +
			"WHAT TO DO:\n• Avoid scratching\n• Use fragrance-free moisturizer\n• Cool compresses for itching\n\n" +
			"SEEK MEDICAL HELP IF:\n• Rash spreads quickly or blisters\n• Rash with fever\n• Swelling of the face or throat",
		sources: [2]SourceLink{
			{Title: "Rashes - MedlinePlus", URL: "https://medlineplus.gov/rashes.html"},
			{Title: "Hives - Mayo Clinic", URL: "https://www.mayoclinic.org/diseases-conditions/chronic-hives/symptoms-causes/syc-20352719"},
		},
	},
	{
		tag:      "musculoskeletal",
		keywords: []string{"back pain", "joint", "knee", "muscle", "sprain", "pain", "ache"},
		text: "Muscle and joint pain:\n\n" +
			"POSSIBLE CAUSES:\n• Muscle tension or strain\n• Inflammation or injury\n• Poor posture or overuse\n\n" +
			"WHAT TO DO:\n• Rest the affected area\n• Ice for acute injuries (15-20 min)\n• Gentle stretching once pain eases\n\n" +
			"SEEK MEDICAL HELP IF:\n• Numbness or weakness\n• Pain after a fall or accident\n• Pain that does not improve in a week",
		sources: [2]SourceLink{
			{Title: "Back pain - MedlinePlus", URL: "https://medlineplus.gov/backpain.html"},
			{Title: "Sprains - Mayo Clinic", URL: "https://www.mayoclinic.org/diseases-conditions/sprains/symptoms-causes/syc-20377938"},
		},
	},
}

var (
	emergencyKeywords = []string{"emergency", "urgent", "severe", "can't breathe", "cannot breathe", "chest pain", "unconscious", "bleeding heavily", "suicid"}
	highUrgency       = []string{"sudden", "sharp pain", "difficulty breathing", "high fever"}
)

const (
	emergencyBanner = "🚨 EMERGENCY: Seek immediate medical attention or call emergency services!\n\n"
	highBanner      = "⚠️ HIGH PRIORITY: Consider seeing a healthcare provider soon.\n\n"
)

var (
	preventionText = "Prevention Guidelines:\n\n" +
		"• Maintain a healthy lifestyle with regular exercise\n• Eat a balanced diet rich in fruits and vegetables\n" +
		"• Stay hydrated\n• Get adequate sleep (7-9 hours nightly)\n• Manage stress\n• Practice good hygiene\n" +
		"• Avoid smoking and limit alcohol\n• Regular checkups and screenings\n• Stay up to date with vaccinations\n\n" +
		"⚠️ Prevention strategies vary by individual health conditions."
	preventionSources = []SourceLink{
		{Title: "Prevention Guidelines", URL: "#prevention"},
		{Title: "Healthy Lifestyle Tips", URL: "#lifestyle"},
	}

	treatmentText = "Treatment Approach:\n\n" +
		"• Consult healthcare professionals for a proper diagnosis\n• Follow prescribed medication schedules\n" +
		"• Complete the full course of antibiotics if prescribed\n• Monitor symptoms and side effects\n" +
		"• Keep follow-up appointments\n• Keep a symptom diary\n\n" +
		"⚠️ Never stop prescribed medications without consulting your doctor."
	treatmentSources = []SourceLink{
		{Title: "Treatment Options", URL: "#treatment"},
		{Title: "Medication Guidelines", URL: "#medication"},
	}

	generalText = "General Health Guidance:\n\n" +
		"I couldn't match your question to a specific topic. Some general advice:\n\n" +
		"• Listen to your body's signals\n• Keep a regular relationship with a healthcare provider\n" +
		"• Practice preventive care\n• Prioritize mental health and well-being\n\n" +
		"⚠️ Individual health needs vary. Personalized medical advice is essential."
	generalSources = []SourceLink{
		{Title: "Health Information", URL: "#general"},
		{Title: "Medical Guidelines", URL: "#guidelines"},
	}
)

// KnowledgeBase answers from a static keyword table. It needs no network and
// never fails, which makes it the last line of the answer path.
type KnowledgeBase struct{}

func NewKnowledgeBase() *KnowledgeBase { return &KnowledgeBase{} }

func (kb *KnowledgeBase) Answer(_ context.Context, question string, _ []Passage) (Answer, error) {
	q := strings.ToLower(question)

	var b strings.Builder
	switch urgency(q) {
	case "emergency":
		b.WriteString(emergencyBanner)
	case "high":
		b.WriteString(highBanner)
	}

	if t := matchTopic(q); t != nil {
		b.WriteString(t.text)
		b.WriteString("\n\n")
		b.WriteString(disclaimer)
		return Answer{Text: b.String(), Sources: append([]SourceLink{}, t.sources[:]...), Strategy: StrategyKnowledgeBase}, nil
	}

	text, sources := generalText, generalSources
	switch {
	case containsAny(q, "prevent", "avoid", "how can i", "how to"):
		text, sources = preventionText, preventionSources
	case containsAny(q, "treatment", "cure", "medicine", "medication"):
		text, sources = treatmentText, treatmentSources
	}
	b.WriteString(text)
	return Answer{Text: b.String(), Sources: append([]SourceLink{}, sources...), Strategy: StrategyKnowledgeBase}, nil
}

// Tags returns the topic tags whose keywords occur in text, in table order.
func (kb *KnowledgeBase) Tags(text string) []string {
	q := strings.ToLower(text)
	var tags []string
	for _, t := range topics {
		if containsAny(q, t.keywords...) {
			tags = append(tags, t.tag)
		}
	}
	if len(tags) == 0 {
		tags = []string{"health"}
	}
	return tags
}

func matchTopic(q string) *topic {
	for i := range topics {
		if containsAny(q, topics[i].keywords...) {
			return &topics[i]
		}
	}
	return nil
}

func urgency(q string) string {
	if containsAny(q, emergencyKeywords...) {
		return "emergency"
	}
	if containsAny(q, highUrgency...) {
		return "high"
	}
	return "normal"
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
