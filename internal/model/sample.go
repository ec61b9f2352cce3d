package model

// SampleProposal is a short demo proposal with two deliberately
// contradicted claims (coherence range, slit width).
const SampleProposal = `Title: Investigating Wave-Particle Duality in Macroscopic Systems

Abstract:
This proposal seeks funding to develop a new apparatus for demonstrating quantum interference at the macroscopic scale. 
Our preliminary data suggests that photon coherence can be maintained over distances exceeding 50 meters in open air, a finding that contradicts the standard decoherence models proposed by Smith et al. (2019). 
We aim to construct a scalable Double Slit setup that can be used for both high-precision measurement and educational outreach. 
Furthermore, we assert that the fringe visibility remains constant regardless of slit width, which simplifies the manufacturing process.`

// SampleReferences returns the demo reference library matching SampleProposal
func SampleReferences() []Reference {
	return []Reference{
		{
			ID:             "ref-1",
			Title:          "Decoherence Limits in Open Air Quantum Systems",
			Authors:        "Smith, J., Doe, A.",
			Year:           2019,
			ContentSnippet: "Our models predict rapid decoherence of photon states in open air beyond 10 meters due to atmospheric scattering. Coherence beyond this range requires vacuum conditions.",
		},
		{
			ID:             "ref-2",
			Title:          "Optics and Interference Patterns",
			Authors:        "Young, T.",
			Year:           1801,
			ContentSnippet: "The intensity of the interference pattern is strictly dependent on the ratio of slit width to wavelength. Changing slit width dramatically alters fringe visibility and the envelope of the diffraction pattern.",
		},
	}
}
