package server

import (
	"sort"

	"github.com/jrsteele09/learnpath/profiles"
)

const xpPerLevel = 500

type Goal struct {
	Title  string
	Done   int
	Target int
}

type Job struct {
	Title    string
	Company  string
	Location string
	MinLevel int
}

type Guild struct {
	Name    string
	Focus   string
	Members int
}

type Course struct {
	Title   string
	Style   profiles.LearningStyle
	Format  string
	Lessons int
}

// Dashboard is what the signed-in pages show beyond the raw profile.
type Dashboard struct {
	NextLevelXP int
	Tip         string
	Goals       []Goal
	Jobs        []Job
	Guilds      []Guild
	Courses     []Course
}

var jobs = []Job{
	{Title: "Junior Data Analyst", Company: "Brightline", Location: "Remote", MinLevel: 2},
	{Title: "Frontend Developer", Company: "Northwind Labs", Location: "Berlin", MinLevel: 4},
	{Title: "Support Engineer", Company: "Tailspin", Location: "Remote", MinLevel: 1},
	{Title: "Backend Developer", Company: "Contoso", Location: "London", MinLevel: 6},
}

var guilds = []Guild{
	{Name: "Night Owls", Focus: "Late evening study sessions", Members: 214},
	{Name: "Data Wranglers", Focus: "SQL and analytics", Members: 389},
	{Name: "Pixel Pushers", Focus: "Frontend and design", Members: 156},
	{Name: "Gophers", Focus: "Go and backend systems", Members: 97},
}

var courses = []Course{
	{Title: "SQL Foundations", Style: profiles.StyleReading, Format: "Guided reading with quizzes", Lessons: 12},
	{Title: "Data Visualisation", Style: profiles.StyleVisual, Format: "Video walkthroughs", Lessons: 9},
	{Title: "Talking Tech", Style: profiles.StyleAuditory, Format: "Podcast-style lectures", Lessons: 8},
	{Title: "Build a Web App", Style: profiles.StyleKinesthetic, Format: "Hands-on project", Lessons: 15},
	{Title: "Git in Practice", Style: profiles.StyleKinesthetic, Format: "Interactive labs", Lessons: 6},
	{Title: "Algorithms Illustrated", Style: profiles.StyleVisual, Format: "Animated diagrams", Lessons: 10},
}

var tips = map[profiles.LearningStyle]string{
	profiles.StyleVisual:      "Sketch a diagram of each new concept before moving on.",
	profiles.StyleAuditory:    "Explain today's lesson out loud, as if teaching a friend.",
	profiles.StyleReading:     "Summarise each lesson in a few written sentences.",
	profiles.StyleKinesthetic: "Try every example yourself before reading the solution.",
}

func buildDashboard(p *profiles.Profile) *Dashboard {
	d := &Dashboard{NextLevelXP: xpPerLevel, Guilds: guilds}
	if p == nil {
		d.Courses = courses
		return d
	}

	level := p.Level
	if level < 1 {
		level = 1
	}
	d.NextLevelXP = level * xpPerLevel
	d.Tip = tips[p.LearningStyle]
	d.Goals = []Goal{
		{Title: "Complete 10 lessons", Done: min(p.LessonsCompleted, 10), Target: 10},
		{Title: "Finish 3 courses", Done: min(p.CoursesCompleted, 3), Target: 3},
		{Title: "Keep a 7 day streak", Done: min(p.StreakDays, 7), Target: 7},
	}
	for _, j := range jobs {
		if j.MinLevel <= level {
			d.Jobs = append(d.Jobs, j)
		}
	}

	// Courses matching the learner's style come first.
	d.Courses = append([]Course(nil), courses...)
	sort.SliceStable(d.Courses, func(i, k int) bool {
		return d.Courses[i].Style == p.LearningStyle && d.Courses[k].Style != p.LearningStyle
	})
	return d
}
