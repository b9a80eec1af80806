package main

// seedRepos populates the store with a small fixture repository shaped like
// githubtraining/hellogitworld, the repo the integration scenarios use.
// Called before the server accepts requests.
func seedRepos(s *store) {
	s.addRepo("githubtraining/hellogitworld", map[string]string{
		"README.txt":                            "This is a sample project for learning git.\n",
		"build.gradle":                          buildGradle,
		"pom.xml":                               pomXML,
		"src/main/java/com/github/App.java":     appJava,
		"src/test/java/com/github/AppTest.java": appTestJava,
	})

	s.addRepo("acme/docs", map[string]string{
		"index.md":          "# Docs\n",
		"guides/install.md": "## Install\n\nDownload the binary.\n",
		"guides/usage.md":   "## Usage\n\nRun ghgrab owner/repo.\n",
		"internal/notes.md": "scratch notes, not published\n",
		"assets/logo.svg":   "<svg></svg>\n",
	})
}

const buildGradle = `apply plugin: 'java'

repositories {
    mavenCentral()
}

dependencies {
    testCompile 'junit:junit:4.11'
}
`

const pomXML = `<project>
  <modelVersion>4.0.0</modelVersion>
  <groupId>com.github</groupId>
  <artifactId>hellogitworld</artifactId>
  <version>1.0-SNAPSHOT</version>
</project>
`

const appJava = `package com.github;

public class App {
    public static void main(String[] args) {
        System.out.println("Hello Git World!");
    }
}
`

const appTestJava = `package com.github;

import org.junit.Test;
import static org.junit.Assert.assertTrue;

public class AppTest {
    @Test
    public void testTruth() {
        assertTrue(true);
    }
}
`
